// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformLayout is the layout of per-frame transform data.
// It is defined as follows:
//
//	[0:16]  | model matrix
//	[16:32] | view matrix
//	[32:48] | projection matrix
//
// Matrices are stored in column-major order.
type TransformLayout [48]float32

// TransformSize is the size in bytes of TransformLayout.
const TransformSize = int64(unsafe.Sizeof(TransformLayout{}))

// SetModel sets the model matrix.
func (l *TransformLayout) SetModel(m *mgl32.Mat4) { copy(l[:16], m[:]) }

// SetView sets the view matrix.
func (l *TransformLayout) SetView(m *mgl32.Mat4) { copy(l[16:32], m[:]) }

// SetProj sets the projection matrix.
func (l *TransformLayout) SetProj(m *mgl32.Mat4) { copy(l[32:48], m[:]) }

// Bytes returns the layout as a byte slice.
// The slice aliases l.
func (l *TransformLayout) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(l)), TransformSize)
}
