package ndi

import (
	"fmt"
	"slices"
)

// Image is a strided, typed, tensor-valued N-dimensional array. An Image
// either owns its backing storage or is a view into another Image's storage
// (ROI, FlipDim, TensorAsDim), never both. Views share samples; mutating a
// view's samples mutates the parent. Geometry of a view can be changed
// freely (it is a separate descriptor), but reallocating storage requires
// Detach first.
//
// Sample addressing is pure offset arithmetic into the storage slice:
// the sample for tensor element t at spatial coordinates c is at
//
//	offset + sum_d c[d]*strides[d] + t*tensorStride
//
// Strides are in samples and may be negative or zero (zero strides appear
// only in broadcast views constructed by the engines).
type Image struct {
	data    any // sample slice, one of the AllocSamples kinds
	view    bool
	dtype   DType
	offset  int
	sizes   []int
	strides []int
	tensor  Tensor
	tstride int
}

// New allocates a forged image with normal strides: tensor stride 1,
// dimension 0 varying fastest with stride tensor.Elements().
func New(dt DType, sizes []int, tensor Tensor) (*Image, error) {
	img := &Image{}
	if err := img.Forge(dt, sizes, tensor); err != nil {
		return nil, err
	}
	return img, nil
}

// Forge allocates storage for an unforged image, or reallocates when the
// requested geometry differs. Forging a view returns an error; Detach it
// first.
func (img *Image) Forge(dt DType, sizes []int, tensor Tensor) error {
	if img.view {
		return fmt.Errorf("%w: cannot forge a view", ErrParameterOutOfRange)
	}
	if len(sizes) == 0 {
		return fmt.Errorf("%w: zero-dimensional image", ErrParameterOutOfRange)
	}
	if tensor.Rows < 1 || tensor.Cols < 1 {
		return fmt.Errorf("%w: invalid tensor shape %dx%d", ErrParameterOutOfRange, tensor.Rows, tensor.Cols)
	}
	n := tensor.Elements()
	for _, s := range sizes {
		if s < 1 {
			return fmt.Errorf("%w: invalid size %v", ErrParameterOutOfRange, sizes)
		}
		n *= s
	}
	if img.IsForged() && img.dtype == dt && tensor.Elements() == img.tensor.Elements() &&
		slices.Equal(sizes, img.sizes) {
		// Geometry already matches; keep the storage.
		img.tensor = tensor
		return nil
	}
	img.data = AllocSamples(dt, n)
	img.dtype = dt
	img.offset = 0
	img.sizes = slices.Clone(sizes)
	img.tensor = tensor
	img.tstride = 1
	img.strides = make([]int, len(sizes))
	stride := tensor.Elements()
	for d := range sizes {
		img.strides[d] = stride
		stride *= sizes[d]
	}
	return nil
}

// IsForged reports whether the image has storage.
func (img *Image) IsForged() bool { return img != nil && img.data != nil }

// IsView reports whether the image aliases another image's storage.
func (img *Image) IsView() bool { return img.view }

// DataType returns the runtime sample type tag.
func (img *Image) DataType() DType { return img.dtype }

// Data returns the backing sample slice. The slice is shared with any
// views of this image.
func (img *Image) Data() any { return img.data }

// Offset returns the storage index of the sample at the coordinate origin.
func (img *Image) Offset() int { return img.offset }

// Dimensionality returns the number of spatial dimensions.
func (img *Image) Dimensionality() int { return len(img.sizes) }

// Sizes returns the per-dimension extents. Callers must not modify it.
func (img *Image) Sizes() []int { return img.sizes }

// Strides returns the per-dimension strides in samples. Callers must not
// modify it.
func (img *Image) Strides() []int { return img.strides }

// Size returns the extent of dimension d.
func (img *Image) Size(d int) int { return img.sizes[d] }

// Stride returns the stride of dimension d.
func (img *Image) Stride(d int) int { return img.strides[d] }

// TensorShape returns the per-pixel tensor shape.
func (img *Image) TensorShape() Tensor { return img.tensor }

// TensorElements returns the number of samples per pixel.
func (img *Image) TensorElements() int { return img.tensor.Elements() }

// TensorStride returns the stride between consecutive tensor elements.
func (img *Image) TensorStride() int { return img.tstride }

// IsScalar reports whether pixels hold a single sample.
func (img *Image) IsScalar() bool { return img.tensor.IsScalar() }

// NumPixels returns the number of pixels.
func (img *Image) NumPixels() int {
	n := 1
	for _, s := range img.sizes {
		n *= s
	}
	return n
}

// NumSamples returns the number of samples (pixels times tensor elements).
func (img *Image) NumSamples() int { return img.NumPixels() * img.tensor.Elements() }

// EqualSizes reports whether two images have identical spatial extents.
func (img *Image) EqualSizes(other *Image) bool {
	return slices.Equal(img.sizes, other.sizes)
}

// PixelOffset returns the storage index of tensor element 0 at coords.
func (img *Image) PixelOffset(coords []int) (int, error) {
	if len(coords) != len(img.sizes) {
		return 0, fmt.Errorf("%w: %d coordinates for %d dimensions",
			ErrParameterOutOfRange, len(coords), len(img.sizes))
	}
	off := img.offset
	for d, c := range coords {
		if c < 0 || c >= img.sizes[d] {
			return 0, fmt.Errorf("%w: coordinate %d out of [0,%d)",
				ErrParameterOutOfRange, c, img.sizes[d])
		}
		off += c * img.strides[d]
	}
	return off, nil
}

// pixelOffset is PixelOffset without bounds checks, for validated callers.
func (img *Image) pixelOffset(coords []int) int {
	off := img.offset
	for d, c := range coords {
		off += c * img.strides[d]
	}
	return off
}

// ROI returns a view of the region starting at lo with the given sizes.
func (img *Image) ROI(lo, sizes []int) (*Image, error) {
	if len(lo) != len(img.sizes) || len(sizes) != len(img.sizes) {
		return nil, fmt.Errorf("%w: ROI rank", ErrParameterOutOfRange)
	}
	for d := range lo {
		if lo[d] < 0 || sizes[d] < 1 || lo[d]+sizes[d] > img.sizes[d] {
			return nil, fmt.Errorf("%w: ROI [%d,%d) in dimension %d of extent %d",
				ErrParameterOutOfRange, lo[d], lo[d]+sizes[d], d, img.sizes[d])
		}
	}
	off, err := img.PixelOffset(lo)
	if err != nil {
		return nil, err
	}
	out := *img
	out.view = true
	out.offset = off
	out.sizes = slices.Clone(sizes)
	out.strides = slices.Clone(img.strides)
	return &out, nil
}

// FlipDim returns a view with dimension d reversed (negative stride).
func (img *Image) FlipDim(d int) (*Image, error) {
	if d < 0 || d >= len(img.sizes) {
		return nil, fmt.Errorf("%w: dimension %d", ErrParameterOutOfRange, d)
	}
	out := *img
	out.view = true
	out.offset = img.offset + (img.sizes[d]-1)*img.strides[d]
	out.sizes = slices.Clone(img.sizes)
	out.strides = slices.Clone(img.strides)
	out.strides[d] = -img.strides[d]
	return &out, nil
}

// TensorAsDim returns a view in which the tensor is appended as an extra
// spatial dimension; the view's pixels are scalar.
func (img *Image) TensorAsDim() *Image {
	out := *img
	out.view = true
	out.sizes = append(slices.Clone(img.sizes), img.tensor.Elements())
	out.strides = append(slices.Clone(img.strides), img.tstride)
	out.tensor = ScalarTensor()
	return &out
}

// ReshapeTensor changes the tensor shape without touching storage. The
// element count must be preserved.
func (img *Image) ReshapeTensor(t Tensor) error {
	if t.Elements() != img.tensor.Elements() {
		return fmt.Errorf("%w: tensor %dx%d has %d elements, image has %d",
			ErrShapeMismatch, t.Rows, t.Cols, t.Elements(), img.tensor.Elements())
	}
	img.tensor = t
	return nil
}

// Clone returns a deep copy with normal strides.
func (img *Image) Clone() *Image {
	out := &Image{}
	// A fresh image cannot fail to forge from valid geometry.
	_ = out.Forge(img.dtype, img.sizes, img.tensor)
	copyRegion(out, img)
	return out
}

// Detach converts a view into an owning image by copying the viewed
// samples into fresh, normally-strided storage. Owning images are
// unchanged.
func (img *Image) Detach() {
	if !img.view {
		return
	}
	c := img.Clone()
	*img = *c
}

// Similar returns a new owning image with this image's sizes and tensor
// shape, normal strides, and the given sample type.
func (img *Image) Similar(dt DType) *Image {
	out := &Image{}
	_ = out.Forge(dt, img.sizes, img.tensor)
	return out
}

// SampleAt reads tensor element t at coords through the complex128 portal.
func (img *Image) SampleAt(t int, coords []int) (complex128, error) {
	if t < 0 || t >= img.tensor.Elements() {
		return 0, fmt.Errorf("%w: tensor element %d", ErrParameterOutOfRange, t)
	}
	off, err := img.PixelOffset(coords)
	if err != nil {
		return 0, err
	}
	return ReadSample(img.data, off+t*img.tstride), nil
}

// SetSampleAt writes tensor element t at coords through the complex128
// portal, with WriteSample's clamping rules.
func (img *Image) SetSampleAt(v complex128, t int, coords []int) error {
	if t < 0 || t >= img.tensor.Elements() {
		return fmt.Errorf("%w: tensor element %d", ErrParameterOutOfRange, t)
	}
	off, err := img.PixelOffset(coords)
	if err != nil {
		return err
	}
	WriteSample(img.data, off+t*img.tstride, v)
	return nil
}

// SamplesOf returns the backing slice as []T. It panics if T does not
// match the image's runtime type; engines look the type up before ever
// calling this.
func SamplesOf[T Sample](img *Image) []T {
	return img.data.([]T)
}

// At returns tensor element t at coords, typed.
func At[T Sample](img *Image, t int, coords ...int) T {
	off, err := img.PixelOffset(coords)
	if err != nil {
		panic(err)
	}
	return SamplesOf[T](img)[off+t*img.tstride]
}

// SetAt writes tensor element t at coords, typed.
func SetAt[T Sample](img *Image, v T, t int, coords ...int) {
	off, err := img.PixelOffset(coords)
	if err != nil {
		panic(err)
	}
	SamplesOf[T](img)[off+t*img.tstride] = v
}

// Fill sets every sample of the image to v (with portal conversion).
func (img *Image) Fill(v complex128) {
	n := img.tensor.Elements()
	forEachPixel(img, func(off int) {
		for t := range n {
			WriteSample(img.data, off+t*img.tstride, v)
		}
	})
}

// Convert returns a copy of in with samples converted to dt, using the
// WriteSample clamping rules. Geometry is preserved with normal strides.
func Convert(in *Image, dt DType) *Image {
	out := in.Similar(dt)
	if dt == in.dtype {
		copyRegion(out, in)
		return out
	}
	n := in.tensor.Elements()
	dst := 0
	forEachPixel(in, func(off int) {
		for t := range n {
			WriteSample(out.data, dst, ReadSample(in.data, off+t*in.tstride))
			dst++
		}
	})
	return out
}

// forEachPixel calls fn with the storage offset of every pixel, dimension
// 0 varying fastest. For normally-strided owning images the offsets are
// simply consecutive pixel starts; for views the strides are honored.
func forEachPixel(img *Image, fn func(off int)) {
	nd := len(img.sizes)
	coords := make([]int, nd)
	for {
		fn(img.pixelOffset(coords))
		d := 0
		for ; d < nd; d++ {
			coords[d]++
			if coords[d] < img.sizes[d] {
				break
			}
			coords[d] = 0
		}
		if d == nd {
			return
		}
	}
}

// copyRegion copies all samples from src into dst. Both must be forged
// with identical sizes, tensor element counts and sample type.
func copyRegion(dst, src *Image) {
	n := src.tensor.Elements()
	nd := len(src.sizes)
	coords := make([]int, nd)
	for {
		so := src.pixelOffset(coords)
		do := dst.pixelOffset(coords)
		copyPixel(dst.data, do, dst.tstride, src.data, so, src.tstride, n)
		d := 0
		for ; d < nd; d++ {
			coords[d]++
			if coords[d] < src.sizes[d] {
				break
			}
			coords[d] = 0
		}
		if d == nd {
			return
		}
	}
}

// copyPixel copies n tensor samples between same-typed sample slices.
func copyPixel(dst any, do, dts int, src any, so, sts int, n int) {
	switch d := dst.(type) {
	case []Binary:
		s := src.([]Binary)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []uint8:
		s := src.([]uint8)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []uint16:
		s := src.([]uint16)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []uint32:
		s := src.([]uint32)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []int8:
		s := src.([]int8)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []int16:
		s := src.([]int16)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []int32:
		s := src.([]int32)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []float32:
		s := src.([]float32)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []float64:
		s := src.([]float64)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []complex64:
		s := src.([]complex64)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	case []complex128:
		s := src.([]complex128)
		for t := range n {
			d[do+t*dts] = s[so+t*sts]
		}
	}
}
