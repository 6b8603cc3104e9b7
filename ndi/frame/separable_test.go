package frame

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ajroetker/go-ndimage/ndi"
)

// shiftKernels reads one sample to the left, exercising the border stage.
var shiftKernels = SeparableKernelTable{
	ndi.Float64: func(in, out Buffer, length, border, _ int, _ []int, _, _ any) {
		src := Samples[float64](in)
		dst := Samples[float64](out)
		for i := 0; i < length; i++ {
			dst[out.Offset+i*out.Stride] = src[in.Offset+(i-1)*in.Stride]
		}
	},
}

// boxKernels averages the sample and its two neighbors.
var boxKernels = SeparableKernelTable{
	ndi.Float64: func(in, out Buffer, length, border, _ int, _ []int, _, _ any) {
		src := Samples[float64](in)
		dst := Samples[float64](out)
		for i := 0; i < length; i++ {
			o := in.Offset + i*in.Stride
			dst[out.Offset+i*out.Stride] = (src[o-in.Stride] + src[o] + src[o+in.Stride]) / 3
		}
	},
}

func TestSeparableShiftWithZeroBoundary(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{3}, ndi.ScalarTensor())
	for i := 0; i < 3; i++ {
		ndi.SetAt(in, float64(i+1), 0, i)
	}
	var out ndi.Image
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Borders:      []int{1},
		Boundary:     []ndi.BoundaryCondition{ndi.BCZero},
		Kernels:      shiftKernels,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 2}
	for i, w := range want {
		if got := ndi.At[float64](&out, 0, i); got != w {
			t.Errorf("out[%d] = %v, want %v", i, got, w)
		}
	}
}

// boxBruteForce applies the two-pass 3-tap box average directly, with
// mirrored boundaries, as a reference for the engine.
func boxBruteForce(in *ndi.Image) [][]float64 {
	nx, ny := in.Size(0), in.Size(1)
	at := func(x, y int) float64 {
		xi, _, _ := ndi.BoundaryIndex(x, nx, ndi.BCMirror)
		yi, _, _ := ndi.BoundaryIndex(y, ny, ndi.BCMirror)
		return ndi.At[float64](in, 0, xi, yi)
	}
	mid := make([][]float64, nx)
	for x := range mid {
		mid[x] = make([]float64, ny)
		for y := range mid[x] {
			mid[x][y] = (at(x-1, y) + at(x, y) + at(x+1, y)) / 3
		}
	}
	matv := func(x, y int) float64 {
		xi, _, _ := ndi.BoundaryIndex(x, nx, ndi.BCMirror)
		yi, _, _ := ndi.BoundaryIndex(y, ny, ndi.BCMirror)
		return mid[xi][yi]
	}
	res := make([][]float64, nx)
	for x := range res {
		res[x] = make([]float64, ny)
		for y := range res[x] {
			res[x][y] = (matv(x, y-1) + matv(x, y) + matv(x, y+1)) / 3
		}
	}
	return res
}

func TestSeparableTwoPassesMatchBruteForce(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{7, 5}, ndi.ScalarTensor())
	s := ndi.SamplesOf[float64](in)
	for i := range s {
		s[i] = float64((i*37)%11) - 5
	}
	var out ndi.Image
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Borders:      []int{1},
		Kernels:      boxKernels,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := boxBruteForce(in)
	for x := 0; x < 7; x++ {
		for y := 0; y < 5; y++ {
			got := ndi.At[float64](&out, 0, x, y)
			if diff := got - want[x][y]; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("out(%d,%d) = %v, want %v", x, y, got, want[x][y])
			}
		}
	}
}

func TestSeparableProcessSubset(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{4, 4}, ndi.ScalarTensor())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			ndi.SetAt(in, float64(10*y+x), 0, x, y)
		}
	}
	var out ndi.Image
	// Shift along dimension 1 only; dimension 0 untouched.
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Process:      []bool{false, true},
		Borders:      []int{1},
		Boundary:     []ndi.BoundaryCondition{ndi.BCZero},
		Kernels:      shiftKernels,
	})
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 4; x++ {
		if got := ndi.At[float64](&out, 0, x, 0); got != 0 {
			t.Errorf("out(%d,0) = %v, want 0", x, got)
		}
		if got := ndi.At[float64](&out, 0, x, 2); got != float64(10+x) {
			t.Errorf("out(%d,2) = %v, want %v", x, got, float64(10+x))
		}
	}
}

func TestSeparableNoProcessedDimsCopies(t *testing.T) {
	in, _ := ndi.New(ndi.Uint8, []int{3, 2}, ndi.ScalarTensor())
	in.Fill(complex(9, 0))
	var out ndi.Image
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float32,
		Process:      []bool{false},
		Kernels:      shiftKernels,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.DataType() != ndi.Float32 {
		t.Fatalf("DataType = %v", out.DataType())
	}
	if got := ndi.At[float32](&out, 0, 1, 1); got != 9 {
		t.Errorf("copied sample = %v, want 9", got)
	}
}

// Tensor elements are filtered independently.
func TestSeparableTensor(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{3}, ndi.VectorTensor(2))
	for i := 0; i < 3; i++ {
		ndi.SetAt(in, float64(i+1), 0, i)
		ndi.SetAt(in, float64(10*(i+1)), 1, i)
	}
	var out ndi.Image
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Borders:      []int{1},
		Boundary:     []ndi.BoundaryCondition{ndi.BCZero},
		Kernels:      shiftKernels,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.TensorElements() != 2 {
		t.Fatalf("tensor elements = %d, want 2", out.TensorElements())
	}
	want0 := []float64{0, 1, 2}
	want1 := []float64{0, 10, 20}
	for i := 0; i < 3; i++ {
		if got := ndi.At[float64](&out, 0, i); got != want0[i] {
			t.Errorf("element 0 [%d] = %v, want %v", i, got, want0[i])
		}
		if got := ndi.At[float64](&out, 1, i); got != want1[i] {
			t.Errorf("element 1 [%d] = %v, want %v", i, got, want1[i])
		}
	}
}

func TestSeparableThreadInvariance(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{128, 200}, ndi.ScalarTensor())
	s := ndi.SamplesOf[float64](in)
	for i := range s {
		s[i] = float64(i % 17)
	}
	var serial, parallel ndi.Image
	spec := SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Borders:      []int{1},
		Kernels:      boxKernels,
	}
	spec.Options = NoMultiThreading
	if err := Separable(in, &serial, spec); err != nil {
		t.Fatal(err)
	}
	spec.Options = 0
	if err := Separable(in, &parallel, spec); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ndi.SamplesOf[float64](&serial), ndi.SamplesOf[float64](&parallel)); diff != "" {
		t.Errorf("parallel result differs (-serial +parallel):\n%s", diff)
	}
}

func TestSeparableTypeNotSupported(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{3}, ndi.ScalarTensor())
	var out ndi.Image
	err := Separable(in, &out, SeparableSpec{
		WorkType:     ndi.Complex128,
		OutImageType: ndi.Complex128,
		Kernels:      shiftKernels,
	})
	if !errors.Is(err, ndi.ErrTypeNotSupported) {
		t.Errorf("got %v, want ErrTypeNotSupported", err)
	}
}

func BenchmarkSeparableBox(b *testing.B) {
	in, _ := ndi.New(ndi.Float64, []int{512, 512}, ndi.ScalarTensor())
	var out ndi.Image
	spec := SeparableSpec{
		WorkType:     ndi.Float64,
		OutImageType: ndi.Float64,
		Borders:      []int{1},
		Kernels:      boxKernels,
	}
	for b.Loop() {
		if err := Separable(in, &out, spec); err != nil {
			b.Fatal(err)
		}
	}
}
