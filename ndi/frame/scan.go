package frame

import (
	"fmt"
	"slices"

	"github.com/ajroetker/go-ndimage/ndi"
	"github.com/ajroetker/go-ndimage/ndi/contrib/workerpool"
)

// parallelThreshold is the sample count below which a scan stays on the
// calling goroutine; partitioning overhead dominates under it.
const parallelThreshold = 16 * 1024

// Workers returns the number of per-worker variable slots a caller must
// provide in ScanSpec.Vars for a parallel run: the shared pool's worker
// count.
func Workers() int { return workerpool.Default().NumWorkers() }

// ScanSpec configures a Scan call beyond its image lists.
type ScanSpec struct {
	// WorkType is the dispatch tag: the sample type the kernel is
	// resolved for and the default type of every line buffer.
	WorkType ndi.DType

	// InTypes and OutTypes override the buffer type per input/output.
	// nil means WorkType for all.
	InTypes  []ndi.DType
	OutTypes []ndi.DType

	// OutImageTypes gives the storage type per output image; nil means
	// WorkType for all.
	OutImageTypes []ndi.DType

	// OutTensors gives the tensor shape per output image; nil copies
	// the first input's tensor shape (scalar when there are no inputs).
	OutTensors []ndi.Tensor

	// Kernels is the operation's dispatch table.
	Kernels KernelTable

	// Params is the opaque read-only parameter block passed to every
	// kernel invocation.
	Params any

	// Vars holds one private mutable state slot per worker, indexed by
	// worker id. May be nil when the kernel keeps no state. A non-empty
	// Vars shorter than Workers() forces a sequential run.
	Vars []any

	Options Options
}

// Scan iterates in lock-step over the input and output images, which must
// share an iteration shape (size-1 input dimensions broadcast), and
// invokes the resolved kernel once per contiguous line along the
// largest-extent dimension. Unforged output images are allocated; where an
// image's native layout cannot be read with the requested buffer type (or
// ExpandTensorInBuffer is set) a temporary contiguous buffer is converted
// in and, for outputs, written back.
//
// All shape and type checks run before any kernel invocation or output
// allocation; a failed call returns without touching the outputs.
func Scan(in, out []*ndi.Image, spec ScanSpec) error {
	kernel, err := spec.Kernels.Lookup(spec.WorkType)
	if err != nil {
		return err
	}
	for i, img := range in {
		if !img.IsForged() {
			return fmt.Errorf("%w: input %d not forged", ndi.ErrShapeMismatch, i)
		}
	}

	inT, err := buftypes(spec.InTypes, len(in), spec.WorkType)
	if err != nil {
		return err
	}
	outT, err := buftypes(spec.OutTypes, len(out), spec.WorkType)
	if err != nil {
		return err
	}
	outImgT, err := buftypes(spec.OutImageTypes, len(out), spec.WorkType)
	if err != nil {
		return err
	}
	outTensors := spec.OutTensors
	if outTensors == nil {
		t := ndi.ScalarTensor()
		if len(in) > 0 {
			t = in[0].TensorShape()
		}
		outTensors = make([]ndi.Tensor, len(out))
		for j := range outTensors {
			outTensors[j] = t
		}
	} else if len(outTensors) != len(out) {
		return fmt.Errorf("%w: %d tensor shapes for %d outputs", ndi.ErrParameterOutOfRange, len(outTensors), len(out))
	}

	tensorAsDim := spec.Options.Has(TensorAsSpatialDim)

	// Iteration shape from the input proxies, with singleton broadcast.
	var itSizes []int
	inProxy := make([]*ndi.Image, len(in))
	for i, img := range in {
		p := img
		if tensorAsDim {
			p = img.TensorAsDim()
		}
		inProxy[i] = p
		if itSizes == nil {
			itSizes = slices.Clone(p.Sizes())
			continue
		}
		if p.Dimensionality() != len(itSizes) {
			return fmt.Errorf("%w: input %d has %d dimensions, expected %d",
				ndi.ErrShapeMismatch, i, p.Dimensionality(), len(itSizes))
		}
		for d, s := range p.Sizes() {
			switch {
			case s == itSizes[d] || s == 1:
			case itSizes[d] == 1:
				itSizes[d] = s
			default:
				return fmt.Errorf("%w: input %d extent %d in dimension %d, expected %d",
					ndi.ErrShapeMismatch, i, s, d, itSizes[d])
			}
		}
	}
	if itSizes == nil {
		// Generator scan: the domain comes from pre-forged outputs.
		for j, img := range out {
			if !img.IsForged() {
				return fmt.Errorf("%w: no inputs and output %d not forged", ndi.ErrShapeMismatch, j)
			}
		}
		if len(out) == 0 {
			return nil
		}
		itSizes = slices.Clone(out[0].Sizes())
		if tensorAsDim {
			itSizes = append(itSizes, out[0].TensorElements())
		}
	}

	spatial := itSizes
	if tensorAsDim {
		spatial = itSizes[:len(itSizes)-1]
		for j := range out {
			n := outTensors[j].Elements()
			last := itSizes[len(itSizes)-1]
			if n != last && !(last == 1 && n == 1) {
				return fmt.Errorf("%w: output %d tensor has %d elements, iteration needs %d",
					ndi.ErrShapeMismatch, j, n, last)
			}
		}
	}

	// Preflight done; forge outputs and build their proxies.
	outProxy := make([]*ndi.Image, len(out))
	for j, img := range out {
		if err := img.Forge(outImgT[j], spatial, outTensors[j]); err != nil {
			return err
		}
		p := img
		if tensorAsDim {
			p = img.TensorAsDim()
		}
		outProxy[j] = p
	}

	inAcc := make([]lineAccess, len(in))
	for i, p := range inProxy {
		inAcc[i] = newLineAccess(p, inT[i], itSizes, spec.Options)
	}
	outAcc := make([]lineAccess, len(out))
	for j, p := range outProxy {
		outAcc[j] = newLineAccess(p, outT[j], itSizes, spec.Options)
	}

	procDim := largestDim(itSizes)
	lineLen := itSizes[procDim]
	lines := 1
	for d, s := range itSizes {
		if d != procDim {
			lines *= s
		}
	}
	for i := range inAcc {
		inAcc[i].lineStride = inAcc[i].strides[procDim]
	}
	for j := range outAcc {
		outAcc[j].lineStride = outAcc[j].strides[procDim]
	}

	work := func(worker, start, end int) {
		varsSlot := any(nil)
		if worker < len(spec.Vars) {
			varsSlot = spec.Vars[worker]
		}
		coords := make([]int, len(itSizes))
		inBufs := make([]Buffer, len(inAcc))
		outBufs := make([]Buffer, len(outAcc))
		inTmp := allocTemps(inAcc, lineLen)
		outTmp := allocTemps(outAcc, lineLen)
		for li := start; li < end; li++ {
			decodeLine(li, itSizes, procDim, coords)
			for i := range inAcc {
				inBufs[i] = inAcc[i].buffer(coords, lineLen, inTmp[i], true)
			}
			for j := range outAcc {
				outBufs[j] = outAcc[j].buffer(coords, lineLen, outTmp[j], false)
			}
			kernel(inBufs, outBufs, lineLen, procDim, coords, spec.Params, varsSlot)
			for j := range outAcc {
				outAcc[j].writeBack(coords, lineLen, outTmp[j])
			}
		}
	}

	pool := workerpool.Default()
	parallel := !spec.Options.Has(NoMultiThreading) &&
		lines > 1 &&
		lines*lineLen >= parallelThreshold &&
		(len(spec.Vars) == 0 || len(spec.Vars) >= pool.NumWorkers())
	if parallel {
		pool.ParallelForWorker(lines, work)
	} else {
		work(0, 0, lines)
	}
	return nil
}

// ScanMonadic runs a one-input one-output scan with the tensor iterated
// as an extra spatial dimension, so kernels see scalar pixels.
func ScanMonadic(in, out *ndi.Image, workType, outType ndi.DType, kernels KernelTable, params any, opts Options) error {
	return Scan([]*ndi.Image{in}, []*ndi.Image{out}, ScanSpec{
		WorkType:      workType,
		OutImageTypes: []ndi.DType{outType},
		OutTensors:    []ndi.Tensor{in.TensorShape()},
		Kernels:       kernels,
		Params:        params,
		Options:       opts | TensorAsSpatialDim,
	})
}

// ScanDyadic runs a two-input one-output scan. When exactly one operand
// is scalar it broadcasts across the other operand's tensor elements
// (TensorAsSpatialDim); with matching element counts the kernel walks the
// tensors itself. Mismatched non-scalar tensors fail.
func ScanDyadic(lhs, rhs, out *ndi.Image, workType, outType ndi.DType, kernels KernelTable, params any, opts Options) error {
	var tensor ndi.Tensor
	switch {
	case lhs.TensorElements() == rhs.TensorElements():
		tensor = lhs.TensorShape()
	case lhs.IsScalar():
		tensor = rhs.TensorShape()
		opts |= TensorAsSpatialDim
	case rhs.IsScalar():
		tensor = lhs.TensorShape()
		opts |= TensorAsSpatialDim
	default:
		return fmt.Errorf("%w: tensor shapes %dx%d and %dx%d do not broadcast",
			ndi.ErrShapeMismatch,
			lhs.TensorShape().Rows, lhs.TensorShape().Cols,
			rhs.TensorShape().Rows, rhs.TensorShape().Cols)
	}
	return Scan([]*ndi.Image{lhs, rhs}, []*ndi.Image{out}, ScanSpec{
		WorkType:      workType,
		OutImageTypes: []ndi.DType{outType},
		OutTensors:    []ndi.Tensor{tensor},
		Kernels:       kernels,
		Params:        params,
		Options:       opts,
	})
}

// lineAccess caches everything needed to point a Buffer at one line of an
// image, with broadcast dimensions flattened to stride zero.
type lineAccess struct {
	data         any
	origin       int
	strides      []int
	lineStride   int
	tensorLen    int
	tensorStride int
	bufType      ndi.DType
	convert      bool
}

func newLineAccess(img *ndi.Image, bufType ndi.DType, itSizes []int, opts Options) lineAccess {
	a := lineAccess{
		data:         img.Data(),
		origin:       img.Offset(),
		strides:      make([]int, len(itSizes)),
		tensorLen:    img.TensorElements(),
		tensorStride: img.TensorStride(),
		bufType:      bufType,
		convert:      bufType != img.DataType() || opts.Has(ExpandTensorInBuffer),
	}
	for d := range itSizes {
		if img.Size(d) == itSizes[d] {
			a.strides[d] = img.Stride(d)
		}
		// else: extent 1, broadcast with stride 0
	}
	return a
}

// buffer builds the Buffer for the line at coords. When conversion is
// needed the samples are staged in tmp (inputs only; outputs are staged
// empty and written back after the kernel).
func (a *lineAccess) buffer(coords []int, lineLen int, tmp any, fill bool) Buffer {
	off := a.origin
	for d, c := range coords {
		off += c * a.strides[d]
	}
	if !a.convert {
		return Buffer{
			Data:         a.data,
			Offset:       off,
			Stride:       a.lineStride,
			TensorLen:    a.tensorLen,
			TensorStride: a.tensorStride,
		}
	}
	if fill {
		for p := range lineLen {
			src := off + p*a.lineStride
			for t := range a.tensorLen {
				ndi.WriteSample(tmp, p*a.tensorLen+t, ndi.ReadSample(a.data, src+t*a.tensorStride))
			}
		}
	}
	return Buffer{
		Data:         tmp,
		Offset:       0,
		Stride:       a.tensorLen,
		TensorLen:    a.tensorLen,
		TensorStride: 1,
	}
}

// writeBack copies a converted output buffer into the image line.
func (a *lineAccess) writeBack(coords []int, lineLen int, tmp any) {
	if !a.convert {
		return
	}
	off := a.origin
	for d, c := range coords {
		off += c * a.strides[d]
	}
	for p := range lineLen {
		dst := off + p*a.lineStride
		for t := range a.tensorLen {
			ndi.WriteSample(a.data, dst+t*a.tensorStride, ndi.ReadSample(tmp, p*a.tensorLen+t))
		}
	}
}

func allocTemps(acc []lineAccess, lineLen int) []any {
	tmp := make([]any, len(acc))
	for i := range acc {
		if acc[i].convert {
			tmp[i] = ndi.AllocSamples(acc[i].bufType, lineLen*acc[i].tensorLen)
		}
	}
	return tmp
}

// decodeLine translates a flat line index to the coordinates of the
// line's first pixel; the processing dimension entry is zero.
func decodeLine(li int, sizes []int, procDim int, coords []int) {
	for d := range sizes {
		if d == procDim {
			coords[d] = 0
			continue
		}
		coords[d] = li % sizes[d]
		li /= sizes[d]
	}
}

// largestDim picks the dimension with the largest extent, minimizing the
// number of kernel invocations.
func largestDim(sizes []int) int {
	best := 0
	for d, s := range sizes {
		if s > sizes[best] {
			best = d
		}
	}
	return best
}

func buftypes(v []ndi.DType, n int, def ndi.DType) ([]ndi.DType, error) {
	if v == nil {
		out := make([]ndi.DType, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	}
	if len(v) != n {
		return nil, fmt.Errorf("%w: %d buffer types for %d images", ndi.ErrParameterOutOfRange, len(v), n)
	}
	return v, nil
}
