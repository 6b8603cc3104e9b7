// Package linear implements linear filtering: separable convolution with
// one-dimensional filter banks, finite differences, the Sobel gradient,
// and the uniform (mean) filter.
package linear

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/frame"
)

// Symmetry describes how a half filter expands to its full weight list.
type Symmetry int

const (
	// SymmetryGeneral uses the weights as given.
	SymmetryGeneral Symmetry = iota
	// SymmetryEven mirrors around the last weight: [a,b,c] -> [a,b,c,b,a].
	SymmetryEven
	// SymmetryOdd mirrors around the last weight and negates the mirrored
	// half: [a,b,c] -> [a,b,c,-b,-a].
	SymmetryOdd
	// SymmetryEvenHalf mirrors all weights: [a,b,c] -> [a,b,c,c,b,a].
	SymmetryEvenHalf
	// SymmetryOddHalf mirrors all weights and negates the mirrored half:
	// [a,b,c] -> [a,b,c,-c,-b,-a].
	SymmetryOddHalf
)

// Filter1D is a one-dimensional filter, possibly stored in compressed
// symmetric form.
type Filter1D struct {
	Weights []float64

	// Origin is the index of the filter's anchor in the expanded weight
	// list. Negative means the center, len/2.
	Origin int

	Symmetry Symmetry
}

// NewFilter1D returns a centered general filter with the given weights.
func NewFilter1D(weights ...float64) Filter1D {
	return Filter1D{Weights: weights, Origin: -1}
}

// Expand resolves the symmetry and origin, returning the full weight list
// and the anchor index.
func (f Filter1D) Expand() ([]float64, int, error) {
	if len(f.Weights) == 0 {
		return nil, 0, fmt.Errorf("%w: empty filter", ndi.ErrParameterOutOfRange)
	}
	var full []float64
	switch f.Symmetry {
	case SymmetryGeneral:
		full = slices.Clone(f.Weights)
	case SymmetryEven, SymmetryOdd:
		mirror := slices.Clone(f.Weights[:len(f.Weights)-1])
		floats.Reverse(mirror)
		if f.Symmetry == SymmetryOdd {
			floats.Scale(-1, mirror)
		}
		full = append(slices.Clone(f.Weights), mirror...)
	case SymmetryEvenHalf, SymmetryOddHalf:
		mirror := slices.Clone(f.Weights)
		floats.Reverse(mirror)
		if f.Symmetry == SymmetryOddHalf {
			floats.Scale(-1, mirror)
		}
		full = append(slices.Clone(f.Weights), mirror...)
	default:
		return nil, 0, fmt.Errorf("%w: unknown symmetry %d", ndi.ErrParameterOutOfRange, f.Symmetry)
	}
	origin := f.Origin
	if origin < 0 {
		origin = len(full) / 2
	}
	if origin >= len(full) {
		return nil, 0, fmt.Errorf("%w: origin %d outside filter of length %d",
			ndi.ErrParameterOutOfRange, origin, len(full))
	}
	return full, origin, nil
}

// convParams is the per-dimension parameter block of the convolution
// kernel: the expanded weights and the anchor.
type convParams struct {
	weights []float64
	origin  int
}

// SeparableConvolution convolves the image with a one-dimensional filter
// along each dimension in turn. filters holds one entry per dimension, or
// a single entry applied to all. The output is computed and stored in the
// input's flex type.
func SeparableConvolution(in, out *ndi.Image, filters []Filter1D, bc []ndi.BoundaryCondition, opts frame.Options) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	nd := in.Dimensionality()
	switch len(filters) {
	case 1:
		f := filters[0]
		filters = make([]Filter1D, nd)
		for d := range filters {
			filters[d] = f
		}
	case nd:
	default:
		return fmt.Errorf("%w: %d filters for %d dimensions", ndi.ErrParameterOutOfRange, len(filters), nd)
	}
	borders := make([]int, nd)
	process := make([]bool, nd)
	params := make([]any, nd)
	for d := 0; d < nd; d++ {
		full, origin, err := filters[d].Expand()
		if err != nil {
			return err
		}
		left := len(full) - 1 - origin
		borders[d] = max(origin, left)
		process[d] = len(full) > 1 || full[0] != 1
		params[d] = convParams{weights: full, origin: origin}
	}
	wt := in.DataType().Flex()
	return frame.Separable(in, out, frame.SeparableSpec{
		WorkType:     wt,
		OutImageType: wt,
		Process:      process,
		Borders:      borders,
		Boundary:     bc,
		Kernels:      convKernels,
		Params:       params,
		Options:      opts,
	})
}

// convKernelReal computes out(i) as the weighted sum of in(i+origin-j)
// over the expanded weights, which is a true convolution.
func convKernelReal[T ndi.Floats](in, out frame.Buffer, length, _, _ int, _ []int, params, _ any) {
	p := params.(convParams)
	src := frame.Samples[T](in)
	dst := frame.Samples[T](out)
	for i := 0; i < length; i++ {
		base := in.Offset + (i+p.origin)*in.Stride
		var acc float64
		for j, w := range p.weights {
			acc += w * float64(src[base-j*in.Stride])
		}
		dst[out.Offset+i*out.Stride] = T(acc)
	}
}

func convKernelComplex[T ndi.Complexes](in, out frame.Buffer, length, _, _ int, _ []int, params, _ any) {
	p := params.(convParams)
	src := frame.Samples[T](in)
	dst := frame.Samples[T](out)
	for i := 0; i < length; i++ {
		base := in.Offset + (i+p.origin)*in.Stride
		var acc complex128
		for j, w := range p.weights {
			acc += complex(w, 0) * complex128(src[base-j*in.Stride])
		}
		dst[out.Offset+i*out.Stride] = T(acc)
	}
}

var convKernels = frame.SeparableKernelTable{
	ndi.Float32:    convKernelReal[float32],
	ndi.Float64:    convKernelReal[float64],
	ndi.Complex64:  convKernelComplex[complex64],
	ndi.Complex128: convKernelComplex[complex128],
}

// FiniteDifference computes derivatives by finite differences. order
// holds the derivative order per dimension (one value broadcasts): 0
// smooths with [1,2,1]/4, 1 applies the central difference [1,0,-1]/2,
// and 2 applies [1,-2,1].
func FiniteDifference(in, out *ndi.Image, order []int, bc []ndi.BoundaryCondition, opts frame.Options) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	nd := in.Dimensionality()
	switch len(order) {
	case 1:
		order = slices.Repeat(order, nd)
	case nd:
	default:
		return fmt.Errorf("%w: %d derivative orders for %d dimensions", ndi.ErrParameterOutOfRange, len(order), nd)
	}
	filters := make([]Filter1D, nd)
	for d, o := range order {
		f, err := diffFilter(o)
		if err != nil {
			return err
		}
		filters[d] = f
	}
	return SeparableConvolution(in, out, filters, bc, opts)
}

func diffFilter(order int) (Filter1D, error) {
	switch order {
	case 0:
		w := []float64{1, 2, 1}
		floats.Scale(0.25, w)
		return Filter1D{Weights: w, Origin: -1, Symmetry: SymmetryGeneral}, nil
	case 1:
		return Filter1D{Weights: []float64{0.5, 0, -0.5}, Origin: -1, Symmetry: SymmetryGeneral}, nil
	case 2:
		return Filter1D{Weights: []float64{1, -2, 1}, Origin: -1, Symmetry: SymmetryGeneral}, nil
	}
	return Filter1D{}, fmt.Errorf("%w: derivative order %d", ndi.ErrParameterOutOfRange, order)
}

// SobelGradient computes the Sobel derivative along dim: the central
// difference along dim and [1,2,1]/4 smoothing along every other
// dimension.
func SobelGradient(in, out *ndi.Image, dim int, bc []ndi.BoundaryCondition, opts frame.Options) error {
	if dim < 0 || dim >= in.Dimensionality() {
		return fmt.Errorf("%w: dimension %d", ndi.ErrParameterOutOfRange, dim)
	}
	order := make([]int, in.Dimensionality())
	order[dim] = 1
	return FiniteDifference(in, out, order, bc, opts)
}

// uniformParams carries the neighborhood size for normalization.
type uniformParams struct {
	norm float64
}

// Uniform computes the mean over the given neighborhood shape
// ("rectangular", "elliptic" or "diamond") with the given diameters. The
// result is computed and stored in the input's flex type.
func Uniform(in, out *ndi.Image, shape string, diameters []float64, bc []ndi.BoundaryCondition, opts frame.Options) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	pt, err := ndi.NewPixelTable(shape, diameters, 0)
	if err != nil {
		return err
	}
	extended, err := ndi.ExtendImage(in, pt.RequiredBorder(), bc)
	if err != nil {
		return err
	}
	wt := in.DataType().Flex()
	return frame.Full(extended, out, frame.FullSpec{
		WorkType:     wt,
		OutImageType: wt,
		Table:        pt,
		Kernels:      uniformKernels,
		Params:       uniformParams{norm: 1 / float64(pt.NumberOfPixels())},
		Options:      opts,
	})
}

func uniformKernelReal[T ndi.Floats](in, out frame.Buffer, length, _ int, _ []int, pto *ndi.PixelTableOffsets, params, _ any) {
	p := params.(uniformParams)
	src := frame.Samples[T](in)
	dst := frame.Samples[T](out)
	runs := pto.Runs()
	rstride := pto.Stride()
	for i := 0; i < length; i++ {
		base := in.Offset + i*in.Stride
		var acc float64
		for _, r := range runs {
			off := base + r.Offset
			for k := 0; k < r.Length; k++ {
				acc += float64(src[off+k*rstride])
			}
		}
		dst[out.Offset+i*out.Stride] = T(acc * p.norm)
	}
}

func uniformKernelComplex[T ndi.Complexes](in, out frame.Buffer, length, _ int, _ []int, pto *ndi.PixelTableOffsets, params, _ any) {
	p := params.(uniformParams)
	src := frame.Samples[T](in)
	dst := frame.Samples[T](out)
	runs := pto.Runs()
	rstride := pto.Stride()
	for i := 0; i < length; i++ {
		base := in.Offset + i*in.Stride
		var acc complex128
		for _, r := range runs {
			off := base + r.Offset
			for k := 0; k < r.Length; k++ {
				acc += complex128(src[off+k*rstride])
			}
		}
		dst[out.Offset+i*out.Stride] = T(acc * complex(p.norm, 0))
	}
}

var uniformKernels = frame.FullKernelTable{
	ndi.Float32:    uniformKernelReal[float32],
	ndi.Float64:    uniformKernelReal[float64],
	ndi.Complex64:  uniformKernelComplex[complex64],
	ndi.Complex128: uniformKernelComplex[complex128],
}
