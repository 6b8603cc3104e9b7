package frame

import (
	"fmt"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/contrib/workerpool"
)

// FullKernel computes one output line from an arbitrary neighborhood. For
// output sample i the neighborhood samples sit at
// in.Offset + i*in.Stride + run.Offset + k for each offsets run, k in
// 0..run.Length-1 steps of the offsets line stride. Buffers are scalar.
type FullKernel func(in, out Buffer, length, dim int, pos []int, offsets *ndi.PixelTableOffsets, params, vars any)

// FullKernelTable maps a work sample type to its neighborhood kernel.
type FullKernelTable map[ndi.DType]FullKernel

// Lookup resolves the kernel for dt, or fails with ErrTypeNotSupported.
func (t FullKernelTable) Lookup(dt ndi.DType) (FullKernel, error) {
	k, ok := t[dt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ndi.ErrTypeNotSupported, dt)
	}
	return k, nil
}

// FullSpec configures a Full call.
type FullSpec struct {
	// WorkType is the dispatch tag. Inputs of a different type are
	// converted up front.
	WorkType ndi.DType

	// OutImageType is the output image's storage type.
	OutImageType ndi.DType

	// Table describes the neighborhood.
	Table *ndi.PixelTable

	// Offsets, when non-nil, is a table already prepared for the input's
	// layout; it must be compatible with the (converted) input. When nil
	// it is prepared from Table.
	Offsets *ndi.PixelTableOffsets

	Kernels FullKernelTable
	Params  any
	Vars    []any
	Options Options
}

// Full slides Table's neighborhood over the input and invokes the kernel
// once per output line. The input must already carry the boundary
// extension: Table.RequiredBorder() extra pixels on both sides of every
// dimension, as ndi.ExtendImage produces. Tensor elements are processed
// independently.
func Full(in, out *ndi.Image, spec FullSpec) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	kernel, err := spec.Kernels.Lookup(spec.WorkType)
	if err != nil {
		return err
	}
	pt := spec.Table
	if pt == nil || pt.NumberOfPixels() == 0 {
		return fmt.Errorf("%w: nothing to sample", ndi.ErrEmptyNeighborhood)
	}
	nd := in.Dimensionality()
	if pt.Dimensionality() != nd {
		return fmt.Errorf("%w: %d-dimensional neighborhood on %d-dimensional image",
			ndi.ErrShapeMismatch, pt.Dimensionality(), nd)
	}
	border := pt.RequiredBorder()
	outSizes := make([]int, nd)
	for d := 0; d < nd; d++ {
		outSizes[d] = in.Size(d) - 2*border[d]
		if outSizes[d] < 1 {
			return fmt.Errorf("%w: input extent %d too small for border %d in dimension %d",
				ndi.ErrShapeMismatch, in.Size(d), border[d], d)
		}
	}

	src := in
	if src.DataType() != spec.WorkType {
		src = ndi.Convert(in, spec.WorkType)
	}
	pto := spec.Offsets
	if pto == nil {
		pto, err = pt.Prepare(src)
		if err != nil {
			return err
		}
	} else if !pto.CompatibleWith(src) {
		return fmt.Errorf("%w: offsets prepared for strides %v, image has %v",
			ndi.ErrStrideMismatch, pto.Strides(), src.Strides())
	}

	tensor := in.TensorShape()
	if err := out.Forge(spec.OutImageType, outSizes, tensor); err != nil {
		return err
	}
	workOut := out
	if out.DataType() != spec.WorkType {
		workOut = &ndi.Image{}
		if err := workOut.Forge(spec.WorkType, outSizes, tensor); err != nil {
			return err
		}
	}

	procDim := pt.ProcessingDimension()
	length := outSizes[procDim]
	lines := 1
	for d, s := range outSizes {
		if d != procDim {
			lines *= s
		}
	}
	te := tensor.Elements()

	work := func(worker, start, end int) {
		varsSlot := any(nil)
		if worker < len(spec.Vars) {
			varsSlot = spec.Vars[worker]
		}
		coords := make([]int, nd)
		for li := start; li < end; li++ {
			decodeLine(li, outSizes, procDim, coords)
			inOff := src.Offset()
			for d, c := range coords {
				inOff += (c + border[d]) * src.Stride(d)
			}
			outOff, _ := workOut.PixelOffset(coords)
			for t := 0; t < te; t++ {
				inBuf := Buffer{
					Data:         src.Data(),
					Offset:       inOff + t*src.TensorStride(),
					Stride:       src.Stride(procDim),
					TensorLen:    1,
					TensorStride: 1,
				}
				outBuf := Buffer{
					Data:         workOut.Data(),
					Offset:       outOff + t*workOut.TensorStride(),
					Stride:       workOut.Stride(procDim),
					TensorLen:    1,
					TensorStride: 1,
				}
				kernel(inBuf, outBuf, length, procDim, coords, pto, spec.Params, varsSlot)
			}
		}
	}

	pool := workerpool.Default()
	parallel := !spec.Options.Has(NoMultiThreading) &&
		lines > 1 &&
		lines*length*pt.NumberOfPixels() >= parallelThreshold &&
		(len(spec.Vars) == 0 || len(spec.Vars) >= pool.NumWorkers())
	if parallel {
		pool.ParallelForWorker(lines, work)
	} else {
		work(0, 0, lines)
	}

	if workOut != out {
		return copyConvert(workOut, out)
	}
	return nil
}
