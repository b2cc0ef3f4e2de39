// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package config loads engine configuration from Lua
// scripts.
//
// A configuration script is a regular Lua chunk that
// sets any of the following globals:
//
//	width            | number (integer)
//	height           | number (integer)
//	title            | string
//	frames_in_flight | number (integer)
//	shader_dir       | string
//	shaders          | table of strings
//	texture          | string
//	clear_color      | table of 4 numbers
//	validation       | boolean
//	resizable        | boolean
//	prefer_mailbox   | boolean
//
// Globals that are not set keep their previous values.
// Any other global is ignored.
package config

import (
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/gviegas/vkframe/engine"
	"github.com/gviegas/vkframe/internal/log"
)

var logger = log.New("config")

// Load runs the script at path and applies the globals
// that it sets to c.
func Load(path string, c *engine.Config) error {
	L := newState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return errors.Wrapf(err, "config: %s", path)
	}
	if err := apply(L, c); err != nil {
		return errors.Wrapf(err, "config: %s", path)
	}
	logger.Debugf("loaded %s", path)
	return nil
}

// Parse is like Load but runs src directly.
func Parse(src string, c *engine.Config) error {
	L := newState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return errors.Wrap(err, "config")
	}
	return errors.Wrap(apply(L, c), "config")
}

// newState creates a Lua state with only the base,
// table, string and math libraries open.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range [...]struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}

// setters maps global names to functions that apply
// their values.
var setters = map[string]func(lua.LValue, *engine.Config) error{
	"width": func(v lua.LValue, c *engine.Config) (err error) {
		c.Width, err = intOf(v)
		return
	},
	"height": func(v lua.LValue, c *engine.Config) (err error) {
		c.Height, err = intOf(v)
		return
	},
	"title": func(v lua.LValue, c *engine.Config) (err error) {
		c.Title, err = stringOf(v)
		return
	},
	"frames_in_flight": func(v lua.LValue, c *engine.Config) (err error) {
		c.FramesInFlight, err = intOf(v)
		return
	},
	"shader_dir": func(v lua.LValue, c *engine.Config) (err error) {
		c.ShaderDir, err = stringOf(v)
		return
	},
	"shaders": func(v lua.LValue, c *engine.Config) (err error) {
		c.Shaders, err = stringsOf(v)
		return
	},
	"texture": func(v lua.LValue, c *engine.Config) (err error) {
		c.Texture, err = stringOf(v)
		return
	},
	"clear_color": func(v lua.LValue, c *engine.Config) error {
		fs, err := numbersOf(v)
		if err != nil {
			return err
		}
		if len(fs) != 4 {
			return errors.Errorf("expected 4 numbers, got %d", len(fs))
		}
		copy(c.ClearColor[:], fs)
		return nil
	},
	"validation": func(v lua.LValue, c *engine.Config) (err error) {
		c.Validation, err = boolOf(v)
		return
	},
	"resizable": func(v lua.LValue, c *engine.Config) (err error) {
		c.Resizable, err = boolOf(v)
		return
	},
	"prefer_mailbox": func(v lua.LValue, c *engine.Config) (err error) {
		c.PreferMailbox, err = boolOf(v)
		return
	},
}

// apply applies the globals set in L to c.
// c is not modified if any of them is invalid.
func apply(L *lua.LState, c *engine.Config) error {
	tmp := *c
	for name, set := range setters {
		v := L.GetGlobal(name)
		if v == lua.LNil {
			continue
		}
		if err := set(v, &tmp); err != nil {
			return errors.Wrap(err, name)
		}
	}
	*c = tmp
	return nil
}

func intOf(v lua.LValue) (int, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, errors.Errorf("expected number, got %s", v.Type())
	}
	i := int(n)
	if lua.LNumber(i) != n {
		return 0, errors.Errorf("expected integer, got %v", n)
	}
	return i, nil
}

func stringOf(v lua.LValue) (string, error) {
	s, ok := v.(lua.LString)
	if !ok {
		return "", errors.Errorf("expected string, got %s", v.Type())
	}
	return string(s), nil
}

func boolOf(v lua.LValue) (bool, error) {
	b, ok := v.(lua.LBool)
	if !ok {
		return false, errors.Errorf("expected boolean, got %s", v.Type())
	}
	return bool(b), nil
}

// elemsOf returns the elements of the sequence v.
func elemsOf(v lua.LValue) ([]lua.LValue, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, errors.Errorf("expected table, got %s", v.Type())
	}
	n := t.Len()
	vs := make([]lua.LValue, n)
	for i := range vs {
		vs[i] = t.RawGetInt(i + 1)
	}
	return vs, nil
}

func stringsOf(v lua.LValue) ([]string, error) {
	vs, err := elemsOf(v)
	if err != nil {
		return nil, err
	}
	ss := make([]string, len(vs))
	for i, v := range vs {
		if ss[i], err = stringOf(v); err != nil {
			return nil, errors.Wrapf(err, "[%d]", i+1)
		}
	}
	return ss, nil
}

func numbersOf(v lua.LValue) ([]float32, error) {
	vs, err := elemsOf(v)
	if err != nil {
		return nil, err
	}
	fs := make([]float32, len(vs))
	for i, v := range vs {
		n, ok := v.(lua.LNumber)
		if !ok {
			return nil, errors.Errorf("[%d]: expected number, got %s", i+1, v.Type())
		}
		fs[i] = float32(n)
	}
	return fs, nil
}

// Validate checks that c can be used to run the engine.
func Validate(c *engine.Config) error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("config: invalid window size %dx%d", c.Width, c.Height)
	case c.FramesInFlight < 1 || c.FramesInFlight > engine.MaxFrame:
		return errors.Errorf("config: frames in flight must be in [1, %d], got %d", engine.MaxFrame, c.FramesInFlight)
	case len(c.Shaders) == 0:
		return errors.New("config: no shaders")
	}
	return nil
}
