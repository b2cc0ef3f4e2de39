// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func checkSlicesT(x, y []float32, t *testing.T, prefix string) {
	min := len(x)
	if n := len(y); n < min {
		min = n
	}
	for i := 0; i < min; i++ {
		if x[i] != y[i] {
			t.Fatalf("%s: slices differ at index %d\n%v != %v", prefix, i, x[i], y[i])
		}
	}
}

func TestTransformLayout(t *testing.T) {
	// [0:16]
	m := mgl32.HomogRotate3D(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1})

	// [16:32]
	v := mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})

	// [32:48]
	p := mgl32.Perspective(mgl32.DegToRad(45), 800.0/600.0, 0.1, 10)

	var l TransformLayout
	l.SetModel(&m)
	l.SetView(&v)
	l.SetProj(&p)

	s := "TransformLayout."

	checkSlicesT(l[0:16], m[:], t, s+"SetModel")
	checkSlicesT(l[16:32], v[:], t, s+"SetView")
	checkSlicesT(l[32:48], p[:], t, s+"SetProj")

	if TransformSize != 192 {
		t.Fatalf("TransformSize\nhave %d\nwant 192", TransformSize)
	}
	b := l.Bytes()
	if int64(len(b)) != TransformSize {
		t.Fatalf("%sBytes: len\nhave %d\nwant %d", s, len(b), TransformSize)
	}
	// Bytes aliases the layout.
	l[47] = 1
	if x := math.Float32frombits(uint32(b[188]) | uint32(b[189])<<8 | uint32(b[190])<<16 | uint32(b[191])<<24); x != 1 {
		t.Fatalf("%sBytes: last element\nhave %v\nwant 1", s, x)
	}
}
