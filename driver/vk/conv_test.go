// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/gviegas/vkframe/driver"
)

func TestPresentStatus(t *testing.T) {
	for _, x := range [...]struct {
		res  vk.Result
		st   driver.Status
		fail bool
	}{
		{vk.Success, driver.StatusOK, false},
		{vk.Suboptimal, driver.StatusSuboptimal, false},
		{vk.ErrorOutOfDate, driver.StatusOutOfDate, false},
		{vk.Timeout, driver.StatusOK, true},
		{vk.NotReady, driver.StatusOK, true},
		{vk.ErrorSurfaceLost, driver.StatusOK, true},
		{vk.ErrorDeviceLost, driver.StatusOK, true},
	} {
		st, err := presentStatus(x.res)
		if st != x.st {
			t.Errorf("presentStatus(%d): Status\nhave %v\nwant %v", x.res, st, x.st)
		}
		if (err != nil) != x.fail {
			t.Errorf("presentStatus(%d): error\nhave %v\nwant failure=%t", x.res, err, x.fail)
		}
	}
	if _, err := presentStatus(vk.ErrorSurfaceLost); !errors.Is(err, driver.ErrSurfaceLost) {
		t.Errorf("presentStatus(ErrorSurfaceLost)\nhave %v\nwant %v", err, driver.ErrSurfaceLost)
	}
}

func TestCheckResult(t *testing.T) {
	for _, x := range [...]struct {
		res  vk.Result
		want error
	}{
		{vk.Success, nil},
		{vk.Suboptimal, nil},
		{vk.ErrorOutOfHostMemory, driver.ErrNoHostMemory},
		{vk.ErrorOutOfDeviceMemory, driver.ErrNoDeviceMemory},
		{vk.ErrorDeviceLost, driver.ErrFatal},
		{vk.ErrorLayerNotPresent, driver.ErrNoLayer},
		{vk.ErrorExtensionNotPresent, driver.ErrNoExtension},
		{vk.ErrorIncompatibleDriver, driver.ErrNotInstalled},
		{vk.ErrorSurfaceLost, driver.ErrSurfaceLost},
		{vk.ErrorFormatNotSupported, driver.ErrFatal},
	} {
		err := checkResult(x.res)
		if x.want == nil {
			if err != nil {
				t.Errorf("checkResult(%d)\nhave %v\nwant nil", x.res, err)
			}
			continue
		}
		if !errors.Is(err, x.want) {
			t.Errorf("checkResult(%d)\nhave %v\nwant %v", x.res, err, x.want)
		}
	}
}

func TestCompositeAlpha(t *testing.T) {
	opaque := vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit)
	pre := vk.CompositeAlphaFlags(vk.CompositeAlphaPreMultipliedBit)
	inh := vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)
	for _, x := range [...]struct {
		supported vk.CompositeAlphaFlags
		want      vk.CompositeAlphaFlagBits
	}{
		{opaque, vk.CompositeAlphaOpaqueBit},
		{opaque | inh, vk.CompositeAlphaOpaqueBit},
		{pre | inh, vk.CompositeAlphaPreMultipliedBit},
		{inh, vk.CompositeAlphaInheritBit},
	} {
		if c := compositeAlpha(x.supported); c != x.want {
			t.Errorf("compositeAlpha(%#x)\nhave %#x\nwant %#x", x.supported, c, x.want)
		}
	}
}

func TestPresentMode(t *testing.T) {
	for _, m := range [...]driver.PresentMode{
		driver.PresentImmediate,
		driver.PresentMailbox,
		driver.PresentFIFO,
		driver.PresentFIFORelaxed,
	} {
		x, ok := convPresentModeFrom(convPresentMode(m))
		if !ok || x != m {
			t.Errorf("convPresentModeFrom(convPresentMode(%v))\nhave %v, %t\nwant %v, true", m, x, ok, m)
		}
	}
	if _, ok := convPresentModeFrom(vk.PresentMode(1000111000)); ok {
		t.Error("convPresentModeFrom(SharedDemandRefresh)\nhave true\nwant false")
	}
}

func TestPickFamilies(t *testing.T) {
	for _, x := range [...]struct {
		graph, pres []bool
		want        driver.QueueFamilies
		ok          bool
	}{
		{[]bool{true}, []bool{true}, driver.QueueFamilies{Graphics: 0, Present: 0}, true},
		{[]bool{true, false}, []bool{false, true}, driver.QueueFamilies{Graphics: 0, Present: 1}, true},
		// A family that supports both is preferred.
		{[]bool{true, true}, []bool{false, true}, driver.QueueFamilies{Graphics: 1, Present: 1}, true},
		{[]bool{false, true}, []bool{true, false}, driver.QueueFamilies{Graphics: 1, Present: 0}, true},
		{[]bool{true}, []bool{false}, driver.QueueFamilies{Graphics: 0, Present: -1}, false},
		{nil, nil, driver.QueueFamilies{Graphics: -1, Present: -1}, false},
	} {
		q, ok := pickFamilies(x.graph, x.pres)
		if q != x.want || ok != x.ok {
			t.Errorf("pickFamilies(%v, %v)\nhave %+v, %t\nwant %+v, %t", x.graph, x.pres, q, ok, x.want, x.ok)
		}
	}
}

func TestSelectMemory(t *testing.T) {
	dl := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hv := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	types := []memoryType{
		{flags: dl, heap: 0},
		{flags: hv, heap: 1},
		{flags: dl | hv, heap: 0},
	}
	for _, x := range [...]struct {
		bits uint32
		prop vk.MemoryPropertyFlags
		want int
	}{
		{0b111, dl, 0},
		{0b111, hv, 1},
		{0b111, dl | hv, 2},
		{0b110, dl, 2},
		{0b001, hv, -1},
		{0, 0, -1},
	} {
		if i := selectMemory(types, x.bits, x.prop); i != x.want {
			t.Errorf("selectMemory(%#b, %#x)\nhave %d\nwant %d", x.bits, x.prop, i, x.want)
		}
	}
}

func TestBarrierOf(t *testing.T) {
	if _, _, _, _, ok := barrierOf(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); !ok {
		t.Error("barrierOf(Undefined, TransferDst)\nhave false\nwant true")
	}
	acc1, acc2, _, stg2, ok := barrierOf(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	if !ok {
		t.Fatal("barrierOf(TransferDst, ShaderReadOnly)\nhave false\nwant true")
	}
	if acc1 != vk.AccessFlags(vk.AccessTransferWriteBit) || acc2 != vk.AccessFlags(vk.AccessShaderReadBit) {
		t.Errorf("barrierOf(TransferDst, ShaderReadOnly): access\nhave %#x, %#x\nwant transfer write, shader read", acc1, acc2)
	}
	if stg2 != vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) {
		t.Errorf("barrierOf(TransferDst, ShaderReadOnly): dst stage\nhave %#x\nwant fragment shader", stg2)
	}
	if _, _, _, _, ok := barrierOf(vk.ImageLayoutPresentSrc, vk.ImageLayoutGeneral); ok {
		t.Error("barrierOf(PresentSrc, General)\nhave true\nwant false")
	}
}

func TestConvSync(t *testing.T) {
	for _, x := range [...]struct {
		s    driver.Sync
		want vk.PipelineStageFlagBits
	}{
		{driver.SNone, vk.PipelineStageTopOfPipeBit},
		{driver.SColorOutput, vk.PipelineStageColorAttachmentOutputBit},
		{driver.SCopy | driver.SFragmentShading, vk.PipelineStageTransferBit | vk.PipelineStageFragmentShaderBit},
		{driver.SAll | driver.SCopy, vk.PipelineStageAllCommandsBit},
	} {
		if f := convSync(x.s); f != vk.PipelineStageFlags(x.want) {
			t.Errorf("convSync(%#x)\nhave %#x\nwant %#x", x.s, f, x.want)
		}
	}
}

func TestConvStage(t *testing.T) {
	if f := convStage(driver.SVertex); f != vk.ShaderStageFlags(vk.ShaderStageVertexBit) {
		t.Errorf("convStage(SVertex)\nhave %#x\nwant vertex bit", f)
	}
	want := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	if f := convStage(driver.SAllStages); f != want {
		t.Errorf("convStage(SAllStages)\nhave %#x\nwant %#x", f, want)
	}
}

func TestConvUsage(t *testing.T) {
	base := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if u := convUsage(0); u != base {
		t.Errorf("convUsage(0)\nhave %#x\nwant %#x", u, base)
	}
	u := convUsage(driver.UVertexData | driver.UIndexData)
	if u&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) == 0 || u&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) == 0 {
		t.Errorf("convUsage(UVertexData|UIndexData)\nhave %#x\nwant vertex and index bits", u)
	}
	if u&vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) != 0 {
		t.Errorf("convUsage(UVertexData|UIndexData)\nhave %#x\nwant no uniform bit", u)
	}
}

func TestClampAniso(t *testing.T) {
	for _, x := range [...]struct{ want, limit, res float32 }{
		{16, 0, 1},
		{0, 16, 1},
		{1, 16, 1},
		{8, 16, 8},
		{16, 4, 4},
	} {
		if a := clampAniso(x.want, x.limit); a != x.res {
			t.Errorf("clampAniso(%v, %v)\nhave %v\nwant %v", x.want, x.limit, a, x.res)
		}
	}
}

func TestSPIRVWords(t *testing.T) {
	if _, err := spirvWords(nil); err == nil {
		t.Error("spirvWords(nil)\nhave nil\nwant error")
	}
	if _, err := spirvWords([]byte{3, 2, 0x23, 7, 0}); err == nil {
		t.Error("spirvWords(5 bytes)\nhave nil\nwant error")
	}
	if _, err := spirvWords([]byte{0, 0, 0, 0}); err == nil {
		t.Error("spirvWords(no magic)\nhave nil\nwant error")
	}
	w, err := spirvWords([]byte{3, 2, 0x23, 7, 1, 0, 1, 0})
	if err != nil {
		t.Fatalf("spirvWords\nhave %v\nwant nil", err)
	}
	if len(w) != 2 || w[0] != spirvMagic || w[1] != 0x00010001 {
		t.Errorf("spirvWords\nhave %#x\nwant [%#x 0x10001]", w, spirvMagic)
	}
}

func TestShaderModuleInfo(t *testing.T) {
	if _, err := shaderModuleInfo([]byte{1, 2, 3}); err == nil {
		t.Error("shaderModuleInfo(3 bytes)\nhave nil\nwant error")
	}
	data := []byte{3, 2, 0x23, 7, 1, 0, 1, 0, 0xff, 0, 0, 0}
	info, err := shaderModuleInfo(data)
	if err != nil {
		t.Fatalf("shaderModuleInfo\nhave %v\nwant nil", err)
	}
	if info.SType != vk.StructureTypeShaderModuleCreateInfo {
		t.Errorf("shaderModuleInfo: SType\nhave %v\nwant %v", info.SType, vk.StructureTypeShaderModuleCreateInfo)
	}
	if info.CodeSize != uint64(len(data)) {
		t.Errorf("shaderModuleInfo: CodeSize\nhave %d\nwant %d", info.CodeSize, len(data))
	}
	if len(info.PCode) != 3 || info.PCode[0] != spirvMagic || info.PCode[2] != 0xff {
		t.Errorf("shaderModuleInfo: PCode\nhave %#x\nwant [%#x 0x10001 0xff]", info.PCode, spirvMagic)
	}
}

func TestStrings(t *testing.T) {
	if s := cstr("abc"); s != "abc\x00" {
		t.Errorf("cstr(abc)\nhave %q\nwant %q", s, "abc\x00")
	}
	if s := cstr("abc\x00"); s != "abc\x00" {
		t.Errorf("cstr(abc\\x00)\nhave %q\nwant %q", s, "abc\x00")
	}
	if ss := cstrs(nil); ss != nil {
		t.Errorf("cstrs(nil)\nhave %v\nwant nil", ss)
	}
	list := []string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface"}
	if !hasString(list, "VK_KHR_surface") || !hasString(list, "VK_KHR_xcb_surface\x00") {
		t.Errorf("hasString(%q)\nhave false\nwant true", list)
	}
	if hasString(list, "VK_KHR_swapchain") {
		t.Errorf("hasString(%q, VK_KHR_swapchain)\nhave true\nwant false", list)
	}
}

func TestVersion(t *testing.T) {
	v := vk.MakeVersion(1, 3, 250)
	if x, y, z := versionMajor(v), versionMinor(v), versionPatch(v); x != 1 || y != 3 || z != 250 {
		t.Errorf("version(%#x)\nhave %d.%d.%d\nwant 1.3.250", v, x, y, z)
	}
}
