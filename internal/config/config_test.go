// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gviegas/vkframe/engine"
)

func TestParse(t *testing.T) {
	c := engine.DefaultConfig()
	err := Parse(`
		width = 1280
		height = 360 * 2
		title = "quad " .. "test"
		frames_in_flight = 3
		shader_dir = "assets/shaders"
		shaders = {"a.vert.spv", "a.frag.spv"}
		texture = "tex.png"
		clear_color = {0.1, 0.2, 0.3, 1}
		validation = true
		resizable = false
		prefer_mailbox = false
		unrelated = {1, 2, 3}
	`, &c)
	if err != nil {
		t.Fatalf("Parse\nhave %v\nwant nil", err)
	}
	want := engine.Config{
		Width:          1280,
		Height:         720,
		Title:          "quad test",
		FramesInFlight: 3,
		ShaderDir:      "assets/shaders",
		Shaders:        []string{"a.vert.spv", "a.frag.spv"},
		Texture:        "tex.png",
		ClearColor:     [4]float32{0.1, 0.2, 0.3, 1},
		Validation:     true,
		Resizable:      false,
		PreferMailbox:  false,
	}
	if !reflect.DeepEqual(c, want) {
		t.Fatalf("Parse\nhave %+v\nwant %+v", c, want)
	}
}

func TestParsePartial(t *testing.T) {
	c := engine.DefaultConfig()
	if err := Parse(`width = 640`, &c); err != nil {
		t.Fatalf("Parse\nhave %v\nwant nil", err)
	}
	want := engine.DefaultConfig()
	want.Width = 640
	if !reflect.DeepEqual(c, want) {
		t.Fatalf("Parse (partial)\nhave %+v\nwant %+v", c, want)
	}
}

func TestParseError(t *testing.T) {
	for _, x := range [...]struct {
		src, msg string
	}{
		{`width = "wide"`, "width"},
		{`height = 600.5`, "height"},
		{`title = 42`, "title"},
		{`validation = 1`, "validation"},
		{`shaders = "a.vert.spv"`, "shaders"},
		{`shaders = {"a.vert.spv", 2}`, "shaders"},
		{`clear_color = {0, 0, 0}`, "clear_color"},
		{`clear_color = {0, 0, "0", 1}`, "clear_color"},
		{`width = `, "config"},
		{`error("boom")`, "boom"},
	} {
		c := engine.DefaultConfig()
		err := Parse(x.src, &c)
		if err == nil || !strings.Contains(err.Error(), x.msg) {
			t.Errorf("Parse(%q)\nhave %v\nwant error containing %q", x.src, err, x.msg)
		}
		if !reflect.DeepEqual(c, engine.DefaultConfig()) {
			t.Errorf("Parse(%q): config modified on error\nhave %+v\nwant defaults", x.src, c)
		}
	}
}

func TestParseSandbox(t *testing.T) {
	c := engine.DefaultConfig()
	if err := Parse(`os.exit(1)`, &c); err == nil {
		t.Error("Parse (os library)\nhave nil\nwant error")
	}
	if err := Parse(`width = math.floor(800.7)`, &c); err != nil || c.Width != 800 {
		t.Errorf("Parse (math library)\nhave %v, %d\nwant nil, 800", err, c.Width)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkframe.lua")
	if err := os.WriteFile(path, []byte("frames_in_flight = 1\ntexture = 'x.jpg'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := engine.DefaultConfig()
	if err := Load(path, &c); err != nil {
		t.Fatalf("Load\nhave %v\nwant nil", err)
	}
	if c.FramesInFlight != 1 || c.Texture != "x.jpg" {
		t.Fatalf("Load\nhave %d, %q\nwant 1, \"x.jpg\"", c.FramesInFlight, c.Texture)
	}
	if err := Load(path+".missing", &c); err == nil {
		t.Error("Load (missing file)\nhave nil\nwant error")
	}
}

func TestValidate(t *testing.T) {
	c := engine.DefaultConfig()
	if err := Validate(&c); err != nil {
		t.Fatalf("Validate (defaults)\nhave %v\nwant nil", err)
	}
	for _, f := range [...]func(*engine.Config){
		func(c *engine.Config) { c.Width = 0 },
		func(c *engine.Config) { c.Height = -1 },
		func(c *engine.Config) { c.FramesInFlight = 0 },
		func(c *engine.Config) { c.FramesInFlight = engine.MaxFrame + 1 },
		func(c *engine.Config) { c.Shaders = nil },
	} {
		c := engine.DefaultConfig()
		f(&c)
		if err := Validate(&c); err == nil {
			t.Errorf("Validate(%+v)\nhave nil\nwant error", c)
		}
	}
}
