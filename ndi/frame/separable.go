package frame

import (
	"fmt"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/contrib/workerpool"
)

// SeparableKernel filters one image line. in holds length+2*border samples
// with Offset pointing at the first in-domain sample, so indices
// -border..length+border-1 relative to Offset are readable. out receives
// exactly length samples. Both buffers are scalar (TensorLen 1).
type SeparableKernel func(in, out Buffer, length, border, dim int, pos []int, params, vars any)

// SeparableKernelTable maps a work sample type to the kernel that filters
// lines of that type.
type SeparableKernelTable map[ndi.DType]SeparableKernel

// Lookup resolves the kernel for dt, or fails with ErrTypeNotSupported.
func (t SeparableKernelTable) Lookup(dt ndi.DType) (SeparableKernel, error) {
	k, ok := t[dt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ndi.ErrTypeNotSupported, dt)
	}
	return k, nil
}

// SeparableSpec configures a Separable call.
type SeparableSpec struct {
	// WorkType is the dispatch tag and the type of every line buffer
	// and of the intermediate image between passes.
	WorkType ndi.DType

	// OutImageType is the output image's storage type.
	OutImageType ndi.DType

	// Process selects the dimensions to filter; nil means all.
	Process []bool

	// Borders gives the boundary extension per dimension (one value
	// broadcasts). A processed dimension with border b gets b extra
	// samples on each side of its line buffer.
	Borders []int

	// Boundary gives the out-of-bounds rule per dimension (one value
	// broadcasts); the zero value is the mirror rule.
	Boundary []ndi.BoundaryCondition

	Kernels SeparableKernelTable

	// Params holds one parameter block per dimension; nil passes nil
	// everywhere, a single element broadcasts.
	Params []any

	// Vars holds one private state slot per worker, as in ScanSpec.
	Vars []any

	Options Options
}

// Separable applies a one-dimensional filter along each processed
// dimension in turn, feeding each pass's result to the next through an
// intermediate image of WorkType. Tensor elements are filtered
// independently. The output image is forged to the input's geometry.
func Separable(in, out *ndi.Image, spec SeparableSpec) error {
	if !in.IsForged() {
		return fmt.Errorf("%w: input not forged", ndi.ErrShapeMismatch)
	}
	kernel, err := spec.Kernels.Lookup(spec.WorkType)
	if err != nil {
		return err
	}
	nd := in.Dimensionality()
	process, err := flagsPerDim(spec.Process, nd)
	if err != nil {
		return err
	}
	borders, err := intsPerDim(spec.Borders, nd)
	if err != nil {
		return err
	}
	boundary, err := bcPerDim(spec.Boundary, nd)
	if err != nil {
		return err
	}
	params, err := paramsPerDim(spec.Params, nd)
	if err != nil {
		return err
	}

	var dims []int
	for d := 0; d < nd; d++ {
		if process[d] && in.Size(d) > 1 {
			dims = append(dims, d)
		}
	}

	sizes := in.Sizes()
	tensor := in.TensorShape()
	if err := out.Forge(spec.OutImageType, sizes, tensor); err != nil {
		return err
	}
	if len(dims) == 0 {
		return copyConvert(in, out)
	}

	// Tensor elements ride along as a trailing, never-processed dimension.
	src := in
	dst := out
	if !tensor.IsScalar() {
		src = in.TensorAsDim()
		dst = out.TensorAsDim()
	}
	pnd := src.Dimensionality()

	// One intermediate of WorkType suffices: every pass reads lines into
	// a bordered buffer before writing, so a pass may run in place.
	var work *ndi.Image
	if len(dims) > 1 || src.DataType() != spec.WorkType || dst.DataType() != spec.WorkType {
		work = &ndi.Image{}
		if err := work.Forge(spec.WorkType, src.Sizes(), ndi.ScalarTensor()); err != nil {
			return err
		}
	}

	pool := workerpool.Default()
	for pass, d := range dims {
		passSrc := work
		passDst := work
		if pass == 0 {
			passSrc = src
		}
		if pass == len(dims)-1 {
			passDst = dst
		}
		if work == nil {
			passSrc, passDst = src, dst
		}

		length := src.Size(d)
		border := borders[d]
		bc := boundary[d]
		lines := 1
		for dd := 0; dd < pnd; dd++ {
			if dd != d {
				lines *= src.Size(dd)
			}
		}
		direct := passDst.DataType() == spec.WorkType

		lineWork := func(worker, start, end int) {
			varsSlot := any(nil)
			if worker < len(spec.Vars) {
				varsSlot = spec.Vars[worker]
			}
			coords := make([]int, pnd)
			inData := ndi.AllocSamples(spec.WorkType, length+2*border)
			var outData any
			if !direct {
				outData = ndi.AllocSamples(spec.WorkType, length)
			}
			lineSizes := passSrc.Sizes()
			for li := start; li < end; li++ {
				decodeLine(li, lineSizes, d, coords)
				ndi.CopyLine(inData, passSrc, coords, d, border, bc)
				inBuf := Buffer{Data: inData, Offset: border, Stride: 1, TensorLen: 1, TensorStride: 1}
				var outBuf Buffer
				if direct {
					off, _ := passDst.PixelOffset(coords)
					outBuf = Buffer{Data: passDst.Data(), Offset: off, Stride: passDst.Stride(d), TensorLen: 1, TensorStride: 1}
				} else {
					outBuf = Buffer{Data: outData, Offset: 0, Stride: 1, TensorLen: 1, TensorStride: 1}
				}
				kernel(inBuf, outBuf, length, border, d, coords, params[d], varsSlot)
				if !direct {
					off, _ := passDst.PixelOffset(coords)
					stride := passDst.Stride(d)
					for i := 0; i < length; i++ {
						ndi.WriteSample(passDst.Data(), off+i*stride, ndi.ReadSample(outData, i))
					}
				}
			}
		}

		parallel := !spec.Options.Has(NoMultiThreading) &&
			lines > 1 &&
			lines*length >= parallelThreshold &&
			(len(spec.Vars) == 0 || len(spec.Vars) >= pool.NumWorkers())
		if parallel {
			pool.ParallelForWorker(lines, lineWork)
		} else {
			lineWork(0, 0, lines)
		}
	}
	return nil
}

func copyConvert(in, out *ndi.Image) error {
	n := in.NumPixels()
	te := in.TensorElements()
	coords := make([]int, in.Dimensionality())
	sizes := in.Sizes()
	for p := 0; p < n; p++ {
		srcOff, _ := in.PixelOffset(coords)
		dstOff, _ := out.PixelOffset(coords)
		for t := 0; t < te; t++ {
			ndi.WriteSample(out.Data(), dstOff+t*out.TensorStride(),
				ndi.ReadSample(in.Data(), srcOff+t*in.TensorStride()))
		}
		for d := 0; d < len(coords); d++ {
			coords[d]++
			if coords[d] < sizes[d] {
				break
			}
			coords[d] = 0
		}
	}
	return nil
}

func flagsPerDim(v []bool, nd int) ([]bool, error) {
	switch len(v) {
	case 0:
		out := make([]bool, nd)
		for i := range out {
			out[i] = true
		}
		return out, nil
	case 1:
		out := make([]bool, nd)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case nd:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %d process flags for %d dimensions", ndi.ErrParameterOutOfRange, len(v), nd)
}

func intsPerDim(v []int, nd int) ([]int, error) {
	switch len(v) {
	case 0:
		return make([]int, nd), nil
	case 1:
		out := make([]int, nd)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case nd:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %d borders for %d dimensions", ndi.ErrParameterOutOfRange, len(v), nd)
}

func bcPerDim(v []ndi.BoundaryCondition, nd int) ([]ndi.BoundaryCondition, error) {
	switch len(v) {
	case 0:
		return make([]ndi.BoundaryCondition, nd), nil
	case 1:
		out := make([]ndi.BoundaryCondition, nd)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case nd:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %d boundary conditions for %d dimensions", ndi.ErrParameterOutOfRange, len(v), nd)
}

func paramsPerDim(v []any, nd int) ([]any, error) {
	switch len(v) {
	case 0:
		return make([]any, nd), nil
	case 1:
		out := make([]any, nd)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case nd:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %d parameter blocks for %d dimensions", ndi.ErrParameterOutOfRange, len(v), nd)
}
