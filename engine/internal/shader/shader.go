// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package shader provides shader binaries and the layout
// of shader-visible data.
//
// Shader files are named <basename>.<stage>.<ext>, where
// stage is either vert or frag and ext is either spv
// (SPIR-V binary) or wgsl (WGSL source, compiled to
// SPIR-V when loaded).
package shader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// EntryPoint is the name of the entry point of every
// shader.
const EntryPoint = "main"

// Source is a loaded shader.
type Source struct {
	// Name is the base name of the file.
	Name string
	// Stage is the stage inferred from Name.
	// It is driver.SAllStages if the stage could not
	// be inferred.
	Stage driver.Stage
	// Code is the SPIR-V binary.
	Code []byte
}

// StageOf infers the shader stage from a file name.
// The stage is given by the second-to-last dot-separated
// token.
func StageOf(name string) driver.Stage {
	toks := strings.Split(filepath.Base(name), ".")
	if len(toks) < 2 {
		return driver.SAllStages
	}
	switch toks[len(toks)-2] {
	case "vert":
		return driver.SVertex
	case "frag":
		return driver.SFragment
	}
	return driver.SAllStages
}

// Load reads the shader file at path.
// WGSL sources are compiled to SPIR-V.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "shader")
	}
	name := filepath.Base(path)
	src := &Source{Name: name, Stage: StageOf(name)}
	switch ext := filepath.Ext(name); ext {
	case ".spv":
		src.Code = data
	case ".wgsl":
		if src.Code, err = Compile(string(data)); err != nil {
			return nil, errors.Wrapf(err, "shader: %s", name)
		}
	default:
		return nil, errors.Errorf("shader: %s: unknown extension %q", name, ext)
	}
	return src, nil
}

// Compile compiles WGSL source to SPIR-V.
func Compile(wgsl string) ([]byte, error) {
	spv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(spv) == 0 || len(spv)%4 != 0 {
		return nil, errors.Errorf("shader: invalid SPIR-V size %d", len(spv))
	}
	return spv, nil
}
