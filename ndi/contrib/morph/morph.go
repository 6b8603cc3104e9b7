// Package morph implements grey-value and binary morphology: dilation and
// erosion over an arbitrary structuring element.
package morph

import (
	"fmt"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/frame"
)

// StructuringElement selects the neighborhood of a morphological
// operation: either a named shape with per-dimension diameters, or an
// explicit binary mask image.
type StructuringElement struct {
	// Shape is one of the named neighborhood shapes; ignored when Mask
	// is set.
	Shape string

	// Diameters gives the neighborhood diameter per image dimension.
	Diameters []float64

	// Mask, when set, defines the neighborhood by its set pixels.
	Mask *ndi.Image
}

// Rectangular returns a box structuring element with the given diameters.
func Rectangular(diameters ...float64) StructuringElement {
	return StructuringElement{Shape: ndi.ShapeRectangular, Diameters: diameters}
}

// Elliptic returns a disk or ellipsoid structuring element.
func Elliptic(diameters ...float64) StructuringElement {
	return StructuringElement{Shape: ndi.ShapeElliptic, Diameters: diameters}
}

// Diamond returns a diamond structuring element.
func Diamond(diameters ...float64) StructuringElement {
	return StructuringElement{Shape: ndi.ShapeDiamond, Diameters: diameters}
}

func (se StructuringElement) table() (*ndi.PixelTable, error) {
	if se.Mask != nil {
		return ndi.NewPixelTableFromMask(se.Mask, nil, 0)
	}
	return ndi.NewPixelTable(se.Shape, se.Diameters, 0)
}

// Dilation writes each pixel's neighborhood maximum to out. On binary
// images this is the union with the structuring element.
func Dilation(in, out *ndi.Image, se StructuringElement, bc []ndi.BoundaryCondition, opts frame.Options) error {
	return minmax(in, out, se, bc, opts, dilateKernels)
}

// Erosion writes each pixel's neighborhood minimum to out. On binary
// images this retains only pixels whose neighborhood is fully set.
func Erosion(in, out *ndi.Image, se StructuringElement, bc []ndi.BoundaryCondition, opts frame.Options) error {
	return minmax(in, out, se, bc, opts, erodeKernels)
}

func minmax(in, out *ndi.Image, se StructuringElement, bc []ndi.BoundaryCondition, opts frame.Options, kernels frame.FullKernelTable) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	pt, err := se.table()
	if err != nil {
		return err
	}
	if pt.Dimensionality() != in.Dimensionality() {
		return fmt.Errorf("%w: %d-dimensional structuring element on %d-dimensional image",
			ndi.ErrShapeMismatch, pt.Dimensionality(), in.Dimensionality())
	}
	extended, err := ndi.ExtendImage(in, pt.RequiredBorder(), bc)
	if err != nil {
		return err
	}
	dt := in.DataType()
	return frame.Full(extended, out, frame.FullSpec{
		WorkType:     dt,
		OutImageType: dt,
		Table:        pt,
		Kernels:      kernels,
		Options:      opts,
	})
}

// minmaxKernel scans the neighborhood keeping the first sample for which
// no better one exists, where better is > for dilation and < for erosion.
func minmaxKernel[T ndi.RealSample](better func(a, b T) bool) frame.FullKernel {
	return func(in, out frame.Buffer, length, _ int, _ []int, pto *ndi.PixelTableOffsets, _, _ any) {
		src := frame.Samples[T](in)
		dst := frame.Samples[T](out)
		runs := pto.Runs()
		rstride := pto.Stride()
		for i := 0; i < length; i++ {
			base := in.Offset + i*in.Stride
			best := src[base+runs[0].Offset]
			for _, r := range runs {
				off := base + r.Offset
				for k := 0; k < r.Length; k++ {
					if v := src[off+k*rstride]; better(v, best) {
						best = v
					}
				}
			}
			dst[out.Offset+i*out.Stride] = best
		}
	}
}

func gt[T ndi.RealSample](a, b T) bool { return a > b }
func lt[T ndi.RealSample](a, b T) bool { return a < b }

var dilateKernels = frame.FullKernelTable{
	ndi.Bin:     minmaxKernel(gt[ndi.Binary]),
	ndi.Uint8:   minmaxKernel(gt[uint8]),
	ndi.Uint16:  minmaxKernel(gt[uint16]),
	ndi.Uint32:  minmaxKernel(gt[uint32]),
	ndi.Int8:    minmaxKernel(gt[int8]),
	ndi.Int16:   minmaxKernel(gt[int16]),
	ndi.Int32:   minmaxKernel(gt[int32]),
	ndi.Float32: minmaxKernel(gt[float32]),
	ndi.Float64: minmaxKernel(gt[float64]),
}

var erodeKernels = frame.FullKernelTable{
	ndi.Bin:     minmaxKernel(lt[ndi.Binary]),
	ndi.Uint8:   minmaxKernel(lt[uint8]),
	ndi.Uint16:  minmaxKernel(lt[uint16]),
	ndi.Uint32:  minmaxKernel(lt[uint32]),
	ndi.Int8:    minmaxKernel(lt[int8]),
	ndi.Int16:   minmaxKernel(lt[int16]),
	ndi.Int32:   minmaxKernel(lt[int32]),
	ndi.Float32: minmaxKernel(lt[float32]),
	ndi.Float64: minmaxKernel(lt[float64]),
}
