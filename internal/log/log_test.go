// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)
	defer SetLevel(Notice)

	l := New("test")
	SetLevel(Warning)
	l.Info("hidden")
	l.Warning("shown")
	s := buf.String()
	if strings.Contains(s, "hidden") {
		t.Errorf("Logger.Info at Warning level\nhave %q\nwant no output", s)
	}
	if !strings.Contains(s, "shown") || !strings.Contains(s, "[test]") {
		t.Errorf("Logger.Warning at Warning level\nhave %q\nwant message with module", s)
	}

	buf.Reset()
	SetLevel(Debug)
	l.Debugf("n=%d", 3)
	if s := buf.String(); !strings.Contains(s, "n=3") {
		t.Errorf("Logger.Debugf at Debug level\nhave %q\nwant n=3", s)
	}
	if !IsEnabled(Debug, "test") {
		t.Error("IsEnabled(Debug, \"test\")\nhave false\nwant true")
	}
}

func TestSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	New("fmt").Error("plain")
	if s := buf.String(); strings.Contains(s, "\033[") {
		t.Errorf("SetSink(non-terminal)\nhave %q\nwant no color codes", s)
	}
	if IsTerminal(&buf) {
		t.Error("IsTerminal(*bytes.Buffer)\nhave true\nwant false")
	}
}
