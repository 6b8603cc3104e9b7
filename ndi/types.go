// Package ndi provides strided, typed, tensor-valued N-dimensional images
// and the runtime type machinery used to drive generic per-type kernels
// over them.
//
// An Image's element type is selected at runtime from a closed set of
// sample types (see DType). Operations are written once as Go generic
// functions and registered in dispatch tables keyed by the runtime tag;
// the engines in the frame package resolve the tag and invoke the right
// instantiation.
//
// Basic usage:
//
//	img, _ := ndi.New(ndi.Float32, []int{640, 480}, ndi.ScalarTensor())
//	v := ndi.SamplesOf[float32](img)
//	// process v through the frame engines
package ndi

// Floats is a constraint for floating-point sample types.
type Floats interface {
	~float32 | ~float64
}

// SignedInts is a constraint for signed integer sample types.
type SignedInts interface {
	~int8 | ~int16 | ~int32
}

// UnsignedInts is a constraint for unsigned integer sample types.
// Binary satisfies this constraint through its underlying type.
type UnsignedInts interface {
	~uint8 | ~uint16 | ~uint32
}

// Integers is a constraint for all integer sample types.
type Integers interface {
	SignedInts | UnsignedInts
}

// Complexes is a constraint for complex sample types.
type Complexes interface {
	~complex64 | ~complex128
}

// RealSample is a constraint for all ordered sample types: integers,
// floats and Binary. Excludes the complex types.
type RealSample interface {
	Integers | Floats
}

// Sample is a constraint for every type an Image can hold.
type Sample interface {
	RealSample | Complexes
}

// Binary is the binary sample type. It holds 0 (false) or 1 (true) and
// supports the full ordered comparison set through its underlying integer,
// with false < true.
type Binary uint8

// BinaryOf converts a bool to a Binary sample.
func BinaryOf(b bool) Binary {
	if b {
		return 1
	}
	return 0
}

// Bool reports whether the sample is set.
func (b Binary) Bool() bool { return b != 0 }

// Tensor describes the shape of the tensor stored at each pixel:
// a matrix of Rows x Cols samples. A scalar image has a 1x1 tensor.
// Element (r, c) is stored at tensor index r + c*Rows (column-major).
type Tensor struct {
	Rows int
	Cols int
}

// ScalarTensor returns the 1x1 tensor shape.
func ScalarTensor() Tensor { return Tensor{Rows: 1, Cols: 1} }

// VectorTensor returns an n x 1 tensor shape.
func VectorTensor(n int) Tensor { return Tensor{Rows: n, Cols: 1} }

// Elements returns the number of samples per pixel.
func (t Tensor) Elements() int { return t.Rows * t.Cols }

// IsScalar reports whether the tensor holds a single sample.
func (t Tensor) IsScalar() bool { return t.Rows == 1 && t.Cols == 1 }

// Index returns the tensor element index for matrix position (r, c).
func (t Tensor) Index(r, c int) int { return r + c*t.Rows }
