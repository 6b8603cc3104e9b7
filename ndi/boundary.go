package ndi

import (
	"fmt"
	"slices"
)

// BoundaryCondition selects how samples outside an image's domain are
// synthesized for neighborhood filters.
type BoundaryCondition int

const (
	// BCMirror reflects the image at the boundary without repeating the
	// edge sample: for size 4, indices ...2 1 0 | 0 1 2 3 | 3 2 1...
	BCMirror BoundaryCondition = iota

	// BCAsymMirror reflects like BCMirror and negates the reflected value.
	BCAsymMirror

	// BCPeriodic wraps around: the image tiles the whole domain.
	BCPeriodic

	// BCZero extends with zero-valued samples.
	BCZero

	// BCClamp repeats the nearest edge sample.
	BCClamp
)

// String returns a human-readable name for the condition.
func (bc BoundaryCondition) String() string {
	switch bc {
	case BCMirror:
		return "mirror"
	case BCAsymMirror:
		return "asym mirror"
	case BCPeriodic:
		return "periodic"
	case BCZero:
		return "zero"
	case BCClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// BoundaryIndex maps an index that may lie outside [0, size) to an
// in-bounds index per the condition. negate reports that the sampled value
// must be negated (BCAsymMirror), zero that the sample is synthesized as
// zero regardless of image content (BCZero).
func BoundaryIndex(i, size int, bc BoundaryCondition) (idx int, negate, zero bool) {
	if i >= 0 && i < size {
		return i, false, false
	}
	switch bc {
	case BCMirror, BCAsymMirror:
		period := 2 * size
		i %= period
		if i < 0 {
			i += period
		}
		if i >= size {
			i = period - i - 1
		}
		return i, bc == BCAsymMirror, false
	case BCPeriodic:
		i %= size
		if i < 0 {
			i += size
		}
		return i, false, false
	case BCZero:
		return 0, false, true
	case BCClamp:
		if i < 0 {
			return 0, false, false
		}
		return size - 1, false, false
	default:
		return 0, false, true
	}
}

// perDim expands a per-dimension parameter list that may hold a single
// value to be used for every dimension.
func perDim[T any](v []T, nd int, def T) ([]T, error) {
	switch len(v) {
	case 0:
		out := make([]T, nd)
		for d := range out {
			out[d] = def
		}
		return out, nil
	case 1:
		out := make([]T, nd)
		for d := range out {
			out[d] = v[0]
		}
		return out, nil
	case nd:
		return slices.Clone(v), nil
	default:
		return nil, fmt.Errorf("%w: %d values for %d dimensions",
			ErrParameterOutOfRange, len(v), nd)
	}
}

// ExtendImage returns a new image whose addressable region exceeds in's by
// border[d] pixels on each side of dimension d, with the border samples
// synthesized per the conditions. The logical region sits at offset border
// within the result; out.Size(d) == in.Size(d) + 2*border[d].
//
// border and bc may hold one value per dimension, a single value for all
// dimensions, or (for bc) be nil for BCMirror everywhere.
func ExtendImage(in *Image, border []int, bc []BoundaryCondition) (*Image, error) {
	nd := in.Dimensionality()
	border, err := perDim(border, nd, 0)
	if err != nil {
		return nil, err
	}
	bc, err = perDim(bc, nd, BCMirror)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, nd)
	for d := range sizes {
		if border[d] < 0 {
			return nil, fmt.Errorf("%w: negative border", ErrParameterOutOfRange)
		}
		sizes[d] = in.Size(d) + 2*border[d]
	}
	out, err := New(in.DataType(), sizes, in.TensorShape())
	if err != nil {
		return nil, err
	}
	n := in.TensorElements()
	src := make([]int, nd)
	forEachCoord(sizes, func(coords []int) {
		neg := false
		for d := range coords {
			idx, dNeg, dZero := BoundaryIndex(coords[d]-border[d], in.Size(d), bc[d])
			if dZero {
				return // freshly allocated storage is already zero
			}
			neg = neg != dNeg
			src[d] = idx
		}
		so := in.pixelOffset(src)
		do := out.pixelOffset(coords)
		if neg {
			for t := range n {
				v := ReadSample(in.data, so+t*in.tstride)
				WriteSample(out.data, do+t*out.tstride, -v)
			}
			return
		}
		copyPixel(out.data, do, out.tstride, in.data, so, in.tstride, n)
	})
	return out, nil
}

// CopyLine fills dst with the samples of the image line along dim passing
// through coords (the dim entry of coords is ignored), preceded and
// followed by border synthesized samples. dst must have been allocated by
// AllocSamples with length in.Size(dim) + 2*border; samples are converted
// to dst's type with the WriteSample rules. Only tensor element 0 is read;
// the engines hand tensor images to this function through TensorAsDim
// views.
func CopyLine(dst any, in *Image, coords []int, dim, border int, bc BoundaryCondition) {
	size := in.Size(dim)
	stride := in.Stride(dim)
	base := in.pixelOffset(coords) - coords[dim]*stride
	for i := -border; i < size+border; i++ {
		idx, neg, zero := BoundaryIndex(i, size, bc)
		var v complex128
		if !zero {
			v = ReadSample(in.data, base+idx*stride)
			if neg {
				v = -v
			}
		}
		WriteSample(dst, i+border, v)
	}
}

// forEachCoord enumerates all coordinates within sizes, dimension 0
// varying fastest. The slice passed to fn is reused between calls.
func forEachCoord(sizes []int, fn func(coords []int)) {
	nd := len(sizes)
	coords := make([]int, nd)
	for {
		fn(coords)
		d := 0
		for ; d < nd; d++ {
			coords[d]++
			if coords[d] < sizes[d] {
				break
			}
			coords[d] = 0
		}
		if d == nd {
			return
		}
	}
}
