// Package frame contains the engines that drive type-dispatched kernels
// over whole images: Scan (pixel-wise over lock-stepped images), Separable
// (repeated 1D passes with boundary extension) and Full (arbitrary
// neighborhoods through a PixelTableOffsets).
//
// A filter author writes one generic kernel per sample type, registers the
// instantiations in a table keyed by ndi.DType, and hands the table to an
// engine. The engine resolves the runtime tag, builds per-line buffers
// (converting sample types where the image's native layout cannot be read
// directly) and invokes the kernel once per line.
package frame

import (
	"fmt"

	"github.com/ajroetker/go-ndimage/ndi"
)

// Buffer describes one line of samples for a kernel invocation: Length
// pixels (passed to the kernel separately), Stride samples apart, each
// carrying TensorLen tensor elements TensorStride samples apart, starting
// at index Offset of Data. All addressing is offset arithmetic into Data;
// a Buffer never outlives the invocation it was built for.
//
// The sample for pixel i, tensor element t, is
//
//	Samples[T](b)[b.Offset + i*b.Stride + t*b.TensorStride]
//
// Kernels must not address outside that range and must be safe to run
// concurrently against disjoint buffers.
type Buffer struct {
	Data         any
	Offset       int
	Stride       int
	TensorLen    int
	TensorStride int
}

// Samples returns the buffer's sample slice as []T. The engine guarantees
// the slice type matches the dispatch tag the kernel was registered under.
func Samples[T ndi.Sample](b Buffer) []T {
	return b.Data.([]T)
}

// ScanKernel processes one line in lock-step across all input and output
// buffers: length pixels along dimension dim, whose first pixel sits at
// full-image coordinates pos. params is the opaque read-only parameter
// block shared by all invocations; vars is the invocation's private
// per-worker state slot (may be nil).
type ScanKernel func(in, out []Buffer, length, dim int, pos []int, params, vars any)

// KernelTable is the static registration table mapping each supported
// runtime tag to the kernel instantiation for that sample type. The set
// of keys is the operation's dispatch breadth: an all-types operation
// registers every tag, a real-only operation omits Bin and the complex
// tags, a binary operation registers only Bin.
type KernelTable map[ndi.DType]ScanKernel

// Lookup resolves the kernel for dt, failing with ErrTypeNotSupported for
// tags outside the table.
func (t KernelTable) Lookup(dt ndi.DType) (ScanKernel, error) {
	k, ok := t[dt]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ndi.ErrTypeNotSupported, dt)
	}
	return k, nil
}

// Options is the set of engine option flags.
type Options uint

const (
	// TensorAsSpatialDim treats the tensor as an extra iterated
	// dimension, so kernels see scalar pixels. A scalar operand
	// broadcasts across the other operands' tensor elements.
	TensorAsSpatialDim Options = 1 << iota

	// ExpandTensorInBuffer materializes a full contiguous tensor per
	// pixel in a temporary line buffer instead of striding through the
	// image's native tensor layout. Required when a kernel needs
	// contiguous tensor access, e.g. matrix multiplication.
	ExpandTensorInBuffer

	// NoMultiThreading forces the engine to run on the calling
	// goroutine regardless of image size.
	NoMultiThreading
)

// Has reports whether flag is set.
func (o Options) Has(flag Options) bool { return o&flag != 0 }
