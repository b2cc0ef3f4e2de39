// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"testing"
)

type fakeDriver struct {
	name string
	gen  int
}

func (d *fakeDriver) Open(Config) (GPU, error) { return nil, ErrNoDevice }
func (d *fakeDriver) Name() string             { return d.name }
func (d *fakeDriver) Close()                   {}

func TestRegister(t *testing.T) {
	mu.Lock()
	saved := drivers
	drivers = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		drivers = saved
		mu.Unlock()
	}()

	Register(&fakeDriver{name: "a"})
	Register(&fakeDriver{name: "b"})
	drv := Drivers()
	if len(drv) != 2 {
		t.Fatalf("Drivers: len\nhave %d\nwant 2", len(drv))
	}
	if drv[0].Name() != "a" || drv[1].Name() != "b" {
		t.Fatalf("Drivers: names\nhave %s, %s\nwant a, b", drv[0].Name(), drv[1].Name())
	}

	// A driver with the same name replaces the old one.
	Register(&fakeDriver{name: "a", gen: 1})
	drv = Drivers()
	if len(drv) != 2 {
		t.Fatalf("Drivers (after replace): len\nhave %d\nwant 2", len(drv))
	}
	if x := drv[0].(*fakeDriver).gen; x != 1 {
		t.Errorf("Drivers (after replace): gen\nhave %d\nwant 1", x)
	}

	// The returned slice is a copy.
	drv[0] = nil
	if Drivers()[0] == nil {
		t.Error("Drivers: modifying result\nhave shared\nwant copy")
	}
}

func TestQueueFamilies(t *testing.T) {
	if u := (QueueFamilies{Graphics: 1, Present: 1}).Unique(); len(u) != 1 || u[0] != 1 {
		t.Errorf("QueueFamilies.Unique (same)\nhave %v\nwant [1]", u)
	}
	if u := (QueueFamilies{Graphics: 0, Present: 2}).Unique(); len(u) != 2 || u[0] != 0 || u[1] != 2 {
		t.Errorf("QueueFamilies.Unique (distinct)\nhave %v\nwant [0 2]", u)
	}
}

func TestExtent(t *testing.T) {
	for _, x := range [...]struct {
		e    Extent
		zero bool
	}{
		{Extent{}, true},
		{Extent{Width: 800}, true},
		{Extent{Height: 600}, true},
		{Extent{Width: -1, Height: 600}, true},
		{Extent{Width: 1, Height: 1}, false},
		{Extent{Width: 800, Height: 600}, false},
	} {
		if z := x.e.IsZero(); z != x.zero {
			t.Errorf("%+v.IsZero()\nhave %t\nwant %t", x.e, z, x.zero)
		}
	}
}

func TestStrings(t *testing.T) {
	for _, x := range [...]struct {
		s    interface{ String() string }
		want string
	}{
		{SVertex, "vertex"},
		{SFragment, "fragment"},
		{SAllStages, "all"},
		{Stage(8), "unknown"},
		{StatusOK, "ok"},
		{StatusSuboptimal, "suboptimal"},
		{StatusOutOfDate, "out-of-date"},
		{PresentMailbox, "mailbox"},
		{PresentFIFO, "fifo"},
		{DevDiscrete, "discrete"},
		{DevIntegrated, "integrated"},
		{DeviceType(99), "other"},
	} {
		if s := x.s.String(); s != x.want {
			t.Errorf("%#v.String()\nhave %s\nwant %s", x.s, s, x.want)
		}
	}
}

func TestAllStages(t *testing.T) {
	if SAllStages&SVertex == 0 || SAllStages&SFragment == 0 {
		t.Errorf("SAllStages\nhave %#x\nwant vertex and fragment bits", int(SAllStages))
	}
}
