package ndi

import "slices"

// OffsetRun is one neighborhood segment expressed against a concrete
// image: Length consecutive samples starting at storage offset Offset
// (relative to the origin pixel), stride apart along the processing
// dimension.
type OffsetRun struct {
	Offset int
	Length int
}

// PixelTableOffsets is a PixelTable bound to a specific image's strides:
// the same shape, with coordinates replaced by storage offsets. Offsets
// cannot be bounds-checked against the image domain, so it is meant for
// images whose boundary has been extended (see ExtendImage) or for pixels
// away from the edges.
//
// It does not own the PixelTable it was derived from, and is valid only
// for images with the exact strides it was prepared for; the frame
// engines reject anything else with ErrStrideMismatch.
type PixelTableOffsets struct {
	table   *PixelTable
	runs    []OffsetRun
	sizes   []int
	origin  []int
	nPixels int
	procDim int
	stride  int
	strides []int
}

// Runs returns the offset run list. Callers must not modify it.
func (pto *PixelTableOffsets) Runs() []OffsetRun { return pto.runs }

// Table returns the PixelTable this was prepared from.
func (pto *PixelTableOffsets) Table() *PixelTable { return pto.table }

// Dimensionality returns the number of dimensions of the neighborhood.
func (pto *PixelTableOffsets) Dimensionality() int { return len(pto.sizes) }

// Sizes returns the bounding box extents. Callers must not modify it.
func (pto *PixelTableOffsets) Sizes() []int { return pto.sizes }

// Origin returns the origin w.r.t. the bounding box corner. Callers must
// not modify it.
func (pto *PixelTableOffsets) Origin() []int { return pto.origin }

// NumberOfPixels returns the pixel count.
func (pto *PixelTableOffsets) NumberOfPixels() int { return pto.nPixels }

// ProcessingDimension returns the dimension the runs lie along.
func (pto *PixelTableOffsets) ProcessingDimension() int { return pto.procDim }

// Stride returns the sample stride along the processing dimension of the
// image this table was prepared for.
func (pto *PixelTableOffsets) Stride() int { return pto.stride }

// Strides returns the per-dimension strides of the image this table was
// prepared for. Callers must not modify it.
func (pto *PixelTableOffsets) Strides() []int { return pto.strides }

// CompatibleWith reports whether img has the strides this table was
// prepared for.
func (pto *PixelTableOffsets) CompatibleWith(img *Image) bool {
	return slices.Equal(pto.strides, img.Strides())
}

// Begin returns a forward iterator positioned at the first pixel.
func (pto *PixelTableOffsets) Begin() (*PixelTableOffsetsIterator, error) {
	if pto.nPixels == 0 {
		return nil, ErrEmptyNeighborhood
	}
	return &PixelTableOffsetsIterator{
		pto:    pto,
		offset: pto.runs[0].Offset,
	}, nil
}

// PixelTableOffsetsIterator visits each neighborhood pixel in turn,
// yielding its storage offset.
type PixelTableOffsetsIterator struct {
	pto    *PixelTableOffsets
	run    int
	index  int
	offset int
}

// Offset returns the current pixel's storage offset relative to the
// origin pixel.
func (it *PixelTableOffsetsIterator) Offset() int { return it.offset }

// IsAtEnd reports whether the iterator has moved past the last pixel.
func (it *PixelTableOffsetsIterator) IsAtEnd() bool { return it.run >= len(it.pto.runs) }

// Next advances one pixel: along the current run by the bound stride,
// then to the next run's start offset. Advancing an at-end iterator is a
// no-op.
func (it *PixelTableOffsetsIterator) Next() {
	if it.IsAtEnd() {
		return
	}
	it.index++
	if it.index < it.pto.runs[it.run].Length {
		it.offset += it.pto.stride
		return
	}
	it.index = 0
	it.run++
	if !it.IsAtEnd() {
		it.offset = it.pto.runs[it.run].Offset
	}
}

// Equal reports whether two iterators reference the same pixel of the
// same prepared table.
func (it *PixelTableOffsetsIterator) Equal(other *PixelTableOffsetsIterator) bool {
	return it.pto == other.pto && it.run == other.run && it.index == other.index
}
