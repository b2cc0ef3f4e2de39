// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// shaderCode implements driver.ShaderCode.
type shaderCode struct {
	d   *Driver
	mod vk.ShaderModule
}

// NewShaderCode creates a new shader code from SPIR-V data.
func (d *Driver) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	info, err := shaderModuleInfo(data)
	if err != nil {
		return nil, err
	}
	var mod vk.ShaderModule
	if err := checkResult(vk.CreateShaderModule(d.dev, &info, nil, &mod)); err != nil {
		return nil, err
	}
	return &shaderCode{d: d, mod: mod}, nil
}

// shaderModuleInfo describes a shader module holding data.
// CodeSize is in bytes.
func shaderModuleInfo(data []byte) (vk.ShaderModuleCreateInfo, error) {
	code, err := spirvWords(data)
	if err != nil {
		return vk.ShaderModuleCreateInfo{}, err
	}
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(data)),
		PCode:    code,
	}, nil
}

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// spirvWords copies data into an aligned slice of words.
// The code size must be a non-zero multiple of four and
// the data must start with the SPIR-V magic number.
func spirvWords(data []byte) ([]uint32, error) {
	n := len(data)
	if n == 0 || n&3 != 0 {
		return nil, errors.Errorf("vk: invalid shader code size %d", n)
	}
	code := make([]uint32, n/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&code[0])), n), data)
	if code[0] != spirvMagic {
		return nil, errors.New("vk: shader code is not SPIR-V")
	}
	return code, nil
}

// Destroy destroys the shader code.
func (c *shaderCode) Destroy() {
	if c == nil {
		return
	}
	if c.d != nil {
		vk.DestroyShaderModule(c.d.dev, c.mod, nil)
	}
	*c = shaderCode{}
}
