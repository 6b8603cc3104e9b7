// Package arith implements pixel-wise arithmetic between images, with
// saturated integer semantics and tensor-aware multiplication.
package arith

import (
	"fmt"
	"math"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/frame"
)

// OutType returns the natural result type of a dyadic operation between
// the two images.
func OutType(lhs, rhs *ndi.Image) ndi.DType {
	return lhs.DataType().Common(rhs.DataType())
}

// Add computes out = lhs + rhs sample-wise in type dt. One operand may be
// scalar, broadcasting over the other's tensor elements.
func Add(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	return frame.ScanDyadic(lhs, rhs, out, dt, dt, addKernels, nil, 0)
}

// Sub computes out = lhs - rhs sample-wise in type dt.
func Sub(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	return frame.ScanDyadic(lhs, rhs, out, dt, dt, subKernels, nil, 0)
}

// MulSamples computes out = lhs * rhs sample-wise in type dt, ignoring
// tensor structure.
func MulSamples(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	return frame.ScanDyadic(lhs, rhs, out, dt, dt, mulKernels, nil, 0)
}

// Div computes out = lhs / rhs sample-wise in type dt. Integer division
// by zero saturates, float division by zero follows IEEE semantics.
func Div(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	return frame.ScanDyadic(lhs, rhs, out, dt, dt, divKernels, nil, 0)
}

// Mod computes out = lhs mod rhs sample-wise in type dt. Only real types
// are supported; a zero modulus yields zero.
func Mod(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	return frame.ScanDyadic(lhs, rhs, out, dt, dt, modKernels, nil, 0)
}

// Mul computes out = lhs * rhs in type dt. When either operand is scalar
// the product is sample-wise with broadcast; otherwise the per-pixel
// tensors multiply as matrices, so an m-by-n lhs and an n-by-k rhs yield
// an m-by-k result.
func Mul(lhs, rhs, out *ndi.Image, dt ndi.DType) error {
	if lhs.IsScalar() || rhs.IsScalar() {
		return MulSamples(lhs, rhs, out, dt)
	}
	lt := lhs.TensorShape()
	rt := rhs.TensorShape()
	if lt.Cols != rt.Rows {
		return fmt.Errorf("%w: cannot multiply %dx%d by %dx%d tensors",
			ndi.ErrShapeMismatch, lt.Rows, lt.Cols, rt.Rows, rt.Cols)
	}
	p := matMulParams{m: lt.Rows, n: lt.Cols, k: rt.Cols}
	return frame.Scan([]*ndi.Image{lhs, rhs}, []*ndi.Image{out}, frame.ScanSpec{
		WorkType:      dt,
		OutImageTypes: []ndi.DType{dt},
		OutTensors:    []ndi.Tensor{{Rows: p.m, Cols: p.k}},
		Kernels:       matMulKernels,
		Params:        p,
		Options:       frame.ExpandTensorInBuffer,
	})
}

// dyadicKernel lifts a sample operation to a line kernel that walks both
// operands and the output in lock-step, tensor element by tensor element.
func dyadicKernel[T ndi.Sample](op func(a, b T) T) frame.ScanKernel {
	return func(in, out []frame.Buffer, length, _ int, _ []int, _, _ any) {
		lhs := frame.Samples[T](in[0])
		rhs := frame.Samples[T](in[1])
		dst := frame.Samples[T](out[0])
		n := out[0].TensorLen
		for i := 0; i < length; i++ {
			lo := in[0].Offset + i*in[0].Stride
			ro := in[1].Offset + i*in[1].Stride
			do := out[0].Offset + i*out[0].Stride
			for t := 0; t < n; t++ {
				dst[do+t*out[0].TensorStride] = op(
					lhs[lo+t*in[0].TensorStride],
					rhs[ro+t*in[1].TensorStride])
			}
		}
	}
}

var addKernels = frame.KernelTable{
	ndi.Bin:        dyadicKernel(ndi.AddSat[ndi.Binary]),
	ndi.Uint8:      dyadicKernel(ndi.AddSat[uint8]),
	ndi.Uint16:     dyadicKernel(ndi.AddSat[uint16]),
	ndi.Uint32:     dyadicKernel(ndi.AddSat[uint32]),
	ndi.Int8:       dyadicKernel(ndi.AddSat[int8]),
	ndi.Int16:      dyadicKernel(ndi.AddSat[int16]),
	ndi.Int32:      dyadicKernel(ndi.AddSat[int32]),
	ndi.Float32:    dyadicKernel(ndi.AddSat[float32]),
	ndi.Float64:    dyadicKernel(ndi.AddSat[float64]),
	ndi.Complex64:  dyadicKernel(ndi.AddSat[complex64]),
	ndi.Complex128: dyadicKernel(ndi.AddSat[complex128]),
}

var subKernels = frame.KernelTable{
	ndi.Bin:        dyadicKernel(ndi.SubSat[ndi.Binary]),
	ndi.Uint8:      dyadicKernel(ndi.SubSat[uint8]),
	ndi.Uint16:     dyadicKernel(ndi.SubSat[uint16]),
	ndi.Uint32:     dyadicKernel(ndi.SubSat[uint32]),
	ndi.Int8:       dyadicKernel(ndi.SubSat[int8]),
	ndi.Int16:      dyadicKernel(ndi.SubSat[int16]),
	ndi.Int32:      dyadicKernel(ndi.SubSat[int32]),
	ndi.Float32:    dyadicKernel(ndi.SubSat[float32]),
	ndi.Float64:    dyadicKernel(ndi.SubSat[float64]),
	ndi.Complex64:  dyadicKernel(ndi.SubSat[complex64]),
	ndi.Complex128: dyadicKernel(ndi.SubSat[complex128]),
}

var mulKernels = frame.KernelTable{
	ndi.Bin:        dyadicKernel(ndi.MulSat[ndi.Binary]),
	ndi.Uint8:      dyadicKernel(ndi.MulSat[uint8]),
	ndi.Uint16:     dyadicKernel(ndi.MulSat[uint16]),
	ndi.Uint32:     dyadicKernel(ndi.MulSat[uint32]),
	ndi.Int8:       dyadicKernel(ndi.MulSat[int8]),
	ndi.Int16:      dyadicKernel(ndi.MulSat[int16]),
	ndi.Int32:      dyadicKernel(ndi.MulSat[int32]),
	ndi.Float32:    dyadicKernel(ndi.MulSat[float32]),
	ndi.Float64:    dyadicKernel(ndi.MulSat[float64]),
	ndi.Complex64:  dyadicKernel(ndi.MulSat[complex64]),
	ndi.Complex128: dyadicKernel(ndi.MulSat[complex128]),
}

var divKernels = frame.KernelTable{
	ndi.Bin:        dyadicKernel(ndi.DivSat[ndi.Binary]),
	ndi.Uint8:      dyadicKernel(ndi.DivSat[uint8]),
	ndi.Uint16:     dyadicKernel(ndi.DivSat[uint16]),
	ndi.Uint32:     dyadicKernel(ndi.DivSat[uint32]),
	ndi.Int8:       dyadicKernel(ndi.DivSat[int8]),
	ndi.Int16:      dyadicKernel(ndi.DivSat[int16]),
	ndi.Int32:      dyadicKernel(ndi.DivSat[int32]),
	ndi.Float32:    dyadicKernel(ndi.DivSat[float32]),
	ndi.Float64:    dyadicKernel(ndi.DivSat[float64]),
	ndi.Complex64:  dyadicKernel(ndi.DivSat[complex64]),
	ndi.Complex128: dyadicKernel(ndi.DivSat[complex128]),
}

var modKernels = frame.KernelTable{
	ndi.Uint8:   dyadicKernel(modInt[uint8]),
	ndi.Uint16:  dyadicKernel(modInt[uint16]),
	ndi.Uint32:  dyadicKernel(modInt[uint32]),
	ndi.Int8:    dyadicKernel(modInt[int8]),
	ndi.Int16:   dyadicKernel(modInt[int16]),
	ndi.Int32:   dyadicKernel(modInt[int32]),
	ndi.Float32: dyadicKernel(modFloat[float32]),
	ndi.Float64: dyadicKernel(modFloat[float64]),
}

func modInt[T ndi.Integers](a, b T) T {
	if b == 0 {
		return 0
	}
	return a % b
}

func modFloat[T ndi.Floats](a, b T) T {
	return T(math.Mod(float64(a), float64(b)))
}

type matMulParams struct {
	m, n, k int
}

// matMulKernel multiplies per-pixel matrices. The buffers arrive expanded,
// so tensor elements are contiguous in column-major order.
func matMulKernel[T ndi.Sample](in, out []frame.Buffer, length, _ int, _ []int, params, _ any) {
	p := params.(matMulParams)
	lhs := frame.Samples[T](in[0])
	rhs := frame.Samples[T](in[1])
	dst := frame.Samples[T](out[0])
	for i := 0; i < length; i++ {
		lo := in[0].Offset + i*in[0].Stride
		ro := in[1].Offset + i*in[1].Stride
		do := out[0].Offset + i*out[0].Stride
		for col := 0; col < p.k; col++ {
			for row := 0; row < p.m; row++ {
				var sum T
				for jj := 0; jj < p.n; jj++ {
					sum = ndi.AddSat(sum, ndi.MulSat(lhs[lo+row+jj*p.m], rhs[ro+jj+col*p.n]))
				}
				dst[do+row+col*p.m] = sum
			}
		}
	}
}

var matMulKernels = frame.KernelTable{
	ndi.Bin:        matMulKernel[ndi.Binary],
	ndi.Uint8:      matMulKernel[uint8],
	ndi.Uint16:     matMulKernel[uint16],
	ndi.Uint32:     matMulKernel[uint32],
	ndi.Int8:       matMulKernel[int8],
	ndi.Int16:      matMulKernel[int16],
	ndi.Int32:      matMulKernel[int32],
	ndi.Float32:    matMulKernel[float32],
	ndi.Float64:    matMulKernel[float64],
	ndi.Complex64:  matMulKernel[complex64],
	ndi.Complex128: matMulKernel[complex128],
}
