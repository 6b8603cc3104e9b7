package ndi

import (
	"fmt"
	"slices"
)

// PixelRun is one horizontal segment of a neighborhood: Length consecutive
// pixels along the processing dimension, starting at Coords relative to
// the neighborhood origin.
type PixelRun struct {
	Coords []int
	Length int
}

// PixelTable represents an arbitrarily-shaped neighborhood (filter
// support) in an arbitrary number of dimensions as a list of pixel runs
// laid out along a chosen processing dimension. It is immutable after
// construction.
//
// Neighbor enumeration goes either through Runs (the representation the
// frame engines consume) or through Begin's forward iterator. Prepare
// binds the shape to a concrete image's strides, yielding a
// PixelTableOffsets whose runs carry storage offsets instead of
// coordinates.
type PixelTable struct {
	runs    []PixelRun
	sizes   []int // bounding box
	origin  []int // origin w.r.t. the top-left corner of the bounding box
	nPixels int
	procDim int
}

// Named neighborhood shapes: unit balls in the L-infinity, L2 and L1 norms.
const (
	ShapeRectangular = "rectangular"
	ShapeElliptic    = "elliptic"
	ShapeDiamond     = "diamond"
)

// NewPixelTable builds the run list for a named shape. diameters gives the
// neighborhood diameter (not radius) per dimension; it also fixes the
// dimensionality. The rectangular diameter is rounded to the nearest
// integer, preserving parity; the elliptic diameter is not rounded but the
// bounding box is always odd-sized; the diamond diameter is rounded to the
// nearest odd integer. procDim selects the dimension the runs lie along.
func NewPixelTable(shape string, diameters []float64, procDim int) (*PixelTable, error) {
	nd := len(diameters)
	if nd == 0 {
		return nil, fmt.Errorf("%w: no diameters", ErrParameterOutOfRange)
	}
	if procDim < 0 || procDim >= nd {
		return nil, fmt.Errorf("%w: processing dimension %d of %d", ErrParameterOutOfRange, procDim, nd)
	}
	for _, s := range diameters {
		if s <= 0 {
			return nil, fmt.Errorf("%w: diameter %v", ErrParameterOutOfRange, s)
		}
	}

	sizes := make([]int, nd)
	var member func(c []int) bool
	switch shape {
	case ShapeRectangular:
		for d, s := range diameters {
			sizes[d] = max(iround(s), 1)
		}
		member = func([]int) bool { return true }
	case ShapeElliptic:
		for d, s := range diameters {
			sizes[d] = 2*int(s/2) + 1
		}
		member = func(c []int) bool {
			sum := 0.0
			for d, x := range c {
				r := diameters[d] / 2
				sum += float64(x) * float64(x) / (r * r)
			}
			return sum <= 1.0
		}
	case ShapeDiamond:
		for d := range diameters {
			sizes[d] = 2*int(diameters[d]/2) + 1
		}
		member = func(c []int) bool {
			sum := 0.0
			for d, x := range c {
				if sizes[d] == 1 {
					continue // zero radius, x is necessarily 0
				}
				r := float64(sizes[d]-1) / 2
				sum += absInt(x) / r
			}
			return sum <= 1.0
		}
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrParameterOutOfRange, shape)
	}

	pt := &PixelTable{
		sizes:   sizes,
		origin:  make([]int, nd),
		procDim: procDim,
	}
	for d := range sizes {
		pt.origin[d] = sizes[d] / 2
	}
	pt.buildRuns(member)
	return pt, nil
}

// NewPixelTableFromMask builds the run list from a scalar binary mask
// image: set pixels belong to the neighborhood. origin gives the mask
// pixel placed at neighborhood coordinate zero; nil selects the mask's
// geometric center (right of center for even extents, matching the named
// shapes).
func NewPixelTableFromMask(mask *Image, origin []int, procDim int) (*PixelTable, error) {
	if mask.DataType() != Bin {
		return nil, fmt.Errorf("%w: mask must be binary, got %v", ErrTypeNotSupported, mask.DataType())
	}
	if !mask.IsScalar() {
		return nil, fmt.Errorf("%w: mask must be scalar", ErrShapeMismatch)
	}
	nd := mask.Dimensionality()
	if procDim < 0 || procDim >= nd {
		return nil, fmt.Errorf("%w: processing dimension %d of %d", ErrParameterOutOfRange, procDim, nd)
	}
	if origin == nil {
		origin = make([]int, nd)
		for d := range origin {
			origin[d] = mask.Size(d) / 2
		}
	} else {
		if len(origin) != nd {
			return nil, fmt.Errorf("%w: origin rank", ErrParameterOutOfRange)
		}
		for d := range origin {
			if origin[d] < 0 || origin[d] >= mask.Size(d) {
				return nil, fmt.Errorf("%w: origin %v outside mask", ErrParameterOutOfRange, origin)
			}
		}
	}

	pt := &PixelTable{
		sizes:   slices.Clone(mask.Sizes()),
		origin:  slices.Clone(origin),
		procDim: procDim,
	}
	samples := SamplesOf[Binary](mask)
	stride := mask.Stride(procDim)
	size := mask.Size(procDim)
	lineSizes := slices.Clone(mask.Sizes())
	lineSizes[procDim] = 1
	forEachCoord(lineSizes, func(coords []int) {
		base := mask.pixelOffset(coords)
		start := -1
		for i := 0; i <= size; i++ {
			set := i < size && samples[base+i*stride] != 0
			if set && start < 0 {
				start = i
			} else if !set && start >= 0 {
				run := PixelRun{Coords: make([]int, nd), Length: i - start}
				for d := range coords {
					run.Coords[d] = coords[d] - origin[d]
				}
				run.Coords[procDim] = start - origin[procDim]
				pt.runs = append(pt.runs, run)
				pt.nPixels += run.Length
				start = -1
			}
		}
	})
	return pt, nil
}

// buildRuns scans every line of the bounding box along the processing
// dimension and records the maximal contiguous segment of coordinates the
// membership predicate accepts. The named shapes are convex, so one
// segment per line is exact.
func (pt *PixelTable) buildRuns(member func(c []int) bool) {
	nd := len(pt.sizes)
	lineSizes := slices.Clone(pt.sizes)
	lineSizes[pt.procDim] = 1
	c := make([]int, nd)
	forEachCoord(lineSizes, func(coords []int) {
		for d := range coords {
			c[d] = coords[d] - pt.origin[d]
		}
		first, last := 0, -1
		for i := range pt.sizes[pt.procDim] {
			c[pt.procDim] = i - pt.origin[pt.procDim]
			if member(c) {
				if last < first {
					first = i
				}
				last = i
			}
		}
		if last >= first {
			run := PixelRun{Coords: make([]int, nd), Length: last - first + 1}
			copy(run.Coords, c)
			run.Coords[pt.procDim] = first - pt.origin[pt.procDim]
			pt.runs = append(pt.runs, run)
			pt.nPixels += run.Length
		}
	})
}

// Runs returns the run list. Callers must not modify it.
func (pt *PixelTable) Runs() []PixelRun { return pt.runs }

// Dimensionality returns the number of dimensions of the neighborhood.
func (pt *PixelTable) Dimensionality() int { return len(pt.sizes) }

// Sizes returns the bounding box extents. Callers must not modify it.
func (pt *PixelTable) Sizes() []int { return pt.sizes }

// Origin returns the origin w.r.t. the top-left corner of the bounding
// box. Callers must not modify it.
func (pt *PixelTable) Origin() []int { return pt.origin }

// NumberOfPixels returns the pixel count; always the sum of run lengths.
func (pt *PixelTable) NumberOfPixels() int { return pt.nPixels }

// ProcessingDimension returns the dimension the runs lie along.
func (pt *PixelTable) ProcessingDimension() int { return pt.procDim }

// RequiredBorder returns, per dimension, the extension an image needs on
// each side so that every neighbor access stays in bounds.
func (pt *PixelTable) RequiredBorder() []int {
	border := make([]int, len(pt.sizes))
	for d := range pt.sizes {
		border[d] = max(pt.origin[d], pt.sizes[d]-pt.origin[d]-1)
	}
	return border
}

// ToMask renders the neighborhood as a scalar binary image of the
// bounding box; the inverse of NewPixelTableFromMask.
func (pt *PixelTable) ToMask() *Image {
	mask, _ := New(Bin, pt.sizes, ScalarTensor())
	samples := SamplesOf[Binary](mask)
	stride := mask.Stride(pt.procDim)
	coords := make([]int, len(pt.sizes))
	for _, run := range pt.runs {
		for d := range coords {
			coords[d] = run.Coords[d] + pt.origin[d]
		}
		off := mask.pixelOffset(coords)
		for i := range run.Length {
			samples[off+i*stride] = 1
		}
	}
	return mask
}

// Prepare binds the table to image's strides, yielding offsets instead of
// coordinates. The result does not own the table and is valid only for
// images whose strides equal image's.
func (pt *PixelTable) Prepare(image *Image) (*PixelTableOffsets, error) {
	if image.Dimensionality() != len(pt.sizes) {
		return nil, fmt.Errorf("%w: table has %d dimensions, image %d",
			ErrShapeMismatch, len(pt.sizes), image.Dimensionality())
	}
	pto := &PixelTableOffsets{
		table:   pt,
		runs:    make([]OffsetRun, len(pt.runs)),
		sizes:   pt.sizes,
		origin:  pt.origin,
		nPixels: pt.nPixels,
		procDim: pt.procDim,
		stride:  image.Stride(pt.procDim),
		strides: slices.Clone(image.Strides()),
	}
	for i, run := range pt.runs {
		off := 0
		for d, c := range run.Coords {
			off += c * image.Stride(d)
		}
		pto.runs[i] = OffsetRun{Offset: off, Length: run.Length}
	}
	return pto, nil
}

// Begin returns a forward iterator positioned at the first pixel.
// The iterator is not restartable; obtain a fresh one for another walk.
func (pt *PixelTable) Begin() (*PixelTableIterator, error) {
	if pt.nPixels == 0 {
		return nil, ErrEmptyNeighborhood
	}
	return &PixelTableIterator{
		pt:     pt,
		coords: slices.Clone(pt.runs[0].Coords),
	}, nil
}

// PixelTableIterator visits each neighborhood pixel in turn, yielding its
// coordinates relative to the origin.
type PixelTableIterator struct {
	pt     *PixelTable
	run    int
	index  int
	coords []int
}

// Coords returns the current pixel's coordinates. Callers must not modify
// the slice; it is rewritten by Next.
func (it *PixelTableIterator) Coords() []int { return it.coords }

// IsAtEnd reports whether the iterator has moved past the last pixel.
func (it *PixelTableIterator) IsAtEnd() bool { return it.run >= len(it.pt.runs) }

// Next advances one pixel: along the current run, then to the next run's
// start. Advancing an at-end iterator is a no-op.
func (it *PixelTableIterator) Next() {
	if it.IsAtEnd() {
		return
	}
	it.index++
	if it.index < it.pt.runs[it.run].Length {
		it.coords[it.pt.procDim]++
		return
	}
	it.index = 0
	it.run++
	if !it.IsAtEnd() {
		copy(it.coords, it.pt.runs[it.run].Coords)
	}
}

// Equal reports whether two iterators reference the same pixel of the
// same table instance. Position identity, not coordinate value, defines
// equality: distinct tables can coincide in value yet be distinct walks.
func (it *PixelTableIterator) Equal(other *PixelTableIterator) bool {
	return it.pt == other.pt && it.run == other.run && it.index == other.index
}

func iround(v float64) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}

func absInt(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
