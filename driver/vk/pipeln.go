// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// pipeline implements driver.Pipeline.
type pipeline struct {
	d      *Driver
	pl     vk.Pipeline
	layout vk.PipelineLayout
}

// NewPipeline creates a new graphics pipeline.
// Its layout is derived from gs.Desc, which may be nil.
func (d *Driver) NewPipeline(gs *driver.GraphState) (driver.Pipeline, error) {
	if gs.VertFunc.Code == nil || gs.FragFunc.Code == nil {
		return nil, errors.New("vk: graphics pipeline requires vertex and fragment functions")
	}
	if gs.Pass == nil {
		return nil, errors.New("vk: graphics pipeline requires a render pass")
	}
	var sets []vk.DescriptorSetLayout
	if gs.Desc != nil {
		sets = []vk.DescriptorSetLayout{gs.Desc.(*descHeap).layout}
	}
	linfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(sets)),
		PSetLayouts:    sets,
	}
	var layout vk.PipelineLayout
	if err := checkResult(vk.CreatePipelineLayout(d.dev, &linfo, nil, &layout)); err != nil {
		return nil, err
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:              vk.StructureTypeGraphicsPipelineCreateInfo,
		Layout:             layout,
		RenderPass:         gs.Pass.(*renderPass).pass,
		BasePipelineHandle: vk.Pipeline(vk.NullHandle),
		BasePipelineIndex:  -1,
	}
	setGraphStages(gs, &info)
	setGraphInput(gs, &info)
	setGraphIA(gs, &info)
	setGraphViewport(&info)
	setGraphRaster(gs, &info)
	setGraphMS(&info)
	setGraphBlend(gs, &info)
	setGraphDynamic(&info)

	pls := make([]vk.Pipeline, 1)
	err := checkResult(vk.CreateGraphicsPipelines(d.dev, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pls))
	if err != nil {
		vk.DestroyPipelineLayout(d.dev, layout, nil)
		return nil, errors.Wrap(err, "vk: vkCreateGraphicsPipelines")
	}
	return &pipeline{d: d, pl: pls[0], layout: layout}, nil
}

// setGraphStages sets the shader stages for graphics
// pipeline creation.
func setGraphStages(gs *driver.GraphState, info *vk.GraphicsPipelineCreateInfo) {
	stgs := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: gs.VertFunc.Code.(*shaderCode).mod,
			PName:  cstr(gs.VertFunc.Name),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: gs.FragFunc.Code.(*shaderCode).mod,
			PName:  cstr(gs.FragFunc.Name),
		},
	}
	info.StageCount = uint32(len(stgs))
	info.PStages = stgs
}

// setGraphInput sets the vertex input state for graphics
// pipeline creation.
// All inputs are sourced from binding zero.
func setGraphInput(gs *driver.GraphState, info *vk.GraphicsPipelineCreateInfo) {
	in := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if n := len(gs.Input); n > 0 {
		attrs := make([]vk.VertexInputAttributeDescription, n)
		for i, x := range gs.Input {
			attrs[i] = vk.VertexInputAttributeDescription{
				Location: uint32(x.Nr),
				Binding:  0,
				Format:   convVertexFmt(x.Format),
				Offset:   uint32(x.Offset),
			}
		}
		in.VertexBindingDescriptionCount = 1
		in.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(gs.Stride),
			InputRate: vk.VertexInputRateVertex,
		}}
		in.VertexAttributeDescriptionCount = uint32(n)
		in.PVertexAttributeDescriptions = attrs
	}
	info.PVertexInputState = &in
}

// setGraphIA sets the input assembly state for graphics
// pipeline creation.
func setGraphIA(gs *driver.GraphState, info *vk.GraphicsPipelineCreateInfo) {
	info.PInputAssemblyState = &vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: convTopology(gs.Topology),
	}
}

// setGraphViewport sets the viewport state for graphics
// pipeline creation. Viewport and scissor are dynamic.
func setGraphViewport(info *vk.GraphicsPipelineCreateInfo) {
	info.PViewportState = &vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
}

// setGraphRaster sets the rasterization state for
// graphics pipeline creation.
func setGraphRaster(gs *driver.GraphState, info *vk.GraphicsPipelineCreateInfo) {
	front := vk.FrontFaceCounterClockwise
	if gs.Raster.Clockwise {
		front = vk.FrontFaceClockwise
	}
	info.PRasterizationState = &vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    convCullMode(gs.Raster.Cull),
		FrontFace:   front,
		LineWidth:   1,
	}
}

// setGraphMS sets the multisample state for graphics
// pipeline creation.
func setGraphMS(info *vk.GraphicsPipelineCreateInfo) {
	info.PMultisampleState = &vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}
}

// setGraphBlend sets the color blend state for graphics
// pipeline creation.
func setGraphBlend(gs *driver.GraphState, info *vk.GraphicsPipelineCreateInfo) {
	blend := vk.False
	if gs.Blend.Blend {
		blend = vk.True
	}
	att := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.Bool32(blend),
		SrcColorBlendFactor: convBlendFac(gs.Blend.SrcFac[0]),
		DstColorBlendFactor: convBlendFac(gs.Blend.DstFac[0]),
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: convBlendFac(gs.Blend.SrcFac[1]),
		DstAlphaBlendFactor: convBlendFac(gs.Blend.DstFac[1]),
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	info.PColorBlendState = &vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{att},
	}
}

// setGraphDynamic sets the dynamic state for graphics
// pipeline creation.
func setGraphDynamic(info *vk.GraphicsPipelineCreateInfo) {
	dyn := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	info.PDynamicState = &vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dyn)),
		PDynamicStates:    dyn,
	}
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		vk.DestroyPipeline(p.d.dev, p.pl, nil)
		vk.DestroyPipelineLayout(p.d.dev, p.layout, nil)
	}
	*p = pipeline{}
}

// convVertexFmt converts a driver.VertexFmt to a vk.Format.
func convVertexFmt(f driver.VertexFmt) vk.Format {
	switch f {
	case driver.Float32:
		return vk.FormatR32Sfloat
	case driver.Float32x2:
		return vk.FormatR32g32Sfloat
	case driver.Float32x3:
		return vk.FormatR32g32b32Sfloat
	case driver.Float32x4:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatUndefined
}

// convTopology converts a driver.Topology to a
// vk.PrimitiveTopology.
func convTopology(t driver.Topology) vk.PrimitiveTopology {
	switch t {
	case driver.TPoint:
		return vk.PrimitiveTopologyPointList
	case driver.TLine:
		return vk.PrimitiveTopologyLineList
	case driver.TTriStrip:
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}

// convCullMode converts a driver.CullMode to cull mode flags.
func convCullMode(m driver.CullMode) vk.CullModeFlags {
	switch m {
	case driver.CFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case driver.CBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

// convBlendFac converts a driver.BlendFac to a
// vk.BlendFactor.
func convBlendFac(f driver.BlendFac) vk.BlendFactor {
	switch f {
	case driver.BOne:
		return vk.BlendFactorOne
	case driver.BSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case driver.BInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	}
	return vk.BlendFactorZero
}
