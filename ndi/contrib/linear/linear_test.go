package linear

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/stat"

	"github.com/ajroetker/go-ndimage/ndi"
)

func TestExpandSymmetries(t *testing.T) {
	cases := []struct {
		name       string
		filter     Filter1D
		want       []float64
		wantOrigin int
	}{
		{
			name:       "general",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: -1},
			want:       []float64{1, 2, 3},
			wantOrigin: 1,
		},
		{
			name:       "general explicit origin",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: 0},
			want:       []float64{1, 2, 3},
			wantOrigin: 0,
		},
		{
			name:       "even",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: -1, Symmetry: SymmetryEven},
			want:       []float64{1, 2, 3, 2, 1},
			wantOrigin: 2,
		},
		{
			name:       "odd",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: -1, Symmetry: SymmetryOdd},
			want:       []float64{1, 2, 3, -2, -1},
			wantOrigin: 2,
		},
		{
			name:       "d-even",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: -1, Symmetry: SymmetryEvenHalf},
			want:       []float64{1, 2, 3, 3, 2, 1},
			wantOrigin: 3,
		},
		{
			name:       "d-odd",
			filter:     Filter1D{Weights: []float64{1, 2, 3}, Origin: -1, Symmetry: SymmetryOddHalf},
			want:       []float64{1, 2, 3, -3, -2, -1},
			wantOrigin: 3,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			full, origin, err := c.filter.Expand()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, full); diff != "" {
				t.Errorf("weights (-want +got):\n%s", diff)
			}
			if origin != c.wantOrigin {
				t.Errorf("origin = %d, want %d", origin, c.wantOrigin)
			}
		})
	}
}

func TestExpandErrors(t *testing.T) {
	if _, _, err := (Filter1D{}).Expand(); !errors.Is(err, ndi.ErrParameterOutOfRange) {
		t.Errorf("empty filter: got %v", err)
	}
	f := Filter1D{Weights: []float64{1, 2}, Origin: 5}
	if _, _, err := f.Expand(); !errors.Is(err, ndi.ErrParameterOutOfRange) {
		t.Errorf("origin outside filter: got %v", err)
	}
}

// The impulse response of a convolution is the filter itself, centered on
// the origin.
func TestConvolutionImpulseResponse(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{5}, ndi.ScalarTensor())
	ndi.SetAt(in, 1.0, 0, 2)
	var out ndi.Image
	f := Filter1D{Weights: []float64{1, 2, 3}, Origin: -1}
	err := SeparableConvolution(in, &out, []Filter1D{f},
		[]ndi.BoundaryCondition{ndi.BCZero}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 2, 3, 0}
	for i, w := range want {
		if got := ndi.At[float64](&out, 0, i); got != w {
			t.Errorf("out[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestConvolutionIdentity(t *testing.T) {
	in, _ := ndi.New(ndi.Uint8, []int{3, 3}, ndi.ScalarTensor())
	for i, v := range []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		ndi.SamplesOf[uint8](in)[i] = v
	}
	var out ndi.Image
	err := SeparableConvolution(in, &out, []Filter1D{NewFilter1D(1)}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.DataType() != ndi.Float64 {
		t.Fatalf("output type %v, want Float64", out.DataType())
	}
	for i, v := range []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		if got := ndi.SamplesOf[float64](&out)[i]; got != float64(v) {
			t.Errorf("sample %d = %v, want %v", i, got, float64(v))
		}
	}
}

func TestFiniteDifferenceGradient(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{8, 3}, ndi.ScalarTensor())
	for y := 0; y < 3; y++ {
		for x := 0; x < 8; x++ {
			ndi.SetAt(in, float64(3*x), 0, x, y)
		}
	}
	var out ndi.Image
	if err := FiniteDifference(in, &out, []int{1, 0}, nil, 0); err != nil {
		t.Fatal(err)
	}
	// The ramp has constant slope 3 away from the boundary.
	for y := 0; y < 3; y++ {
		for x := 1; x < 7; x++ {
			if got := ndi.At[float64](&out, 0, x, y); math.Abs(got-3) > 1e-12 {
				t.Errorf("gradient(%d,%d) = %v, want 3", x, y, got)
			}
		}
	}
}

func TestFiniteDifferenceSecondOrder(t *testing.T) {
	// x^2 has constant second derivative 2.
	in, _ := ndi.New(ndi.Float64, []int{9}, ndi.ScalarTensor())
	for x := 0; x < 9; x++ {
		ndi.SetAt(in, float64(x*x), 0, x)
	}
	var out ndi.Image
	if err := FiniteDifference(in, &out, []int{2}, nil, 0); err != nil {
		t.Fatal(err)
	}
	for x := 1; x < 8; x++ {
		if got := ndi.At[float64](&out, 0, x); math.Abs(got-2) > 1e-12 {
			t.Errorf("laplacian[%d] = %v, want 2", x, got)
		}
	}
}

func TestFiniteDifferenceBadOrder(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{4}, ndi.ScalarTensor())
	var out ndi.Image
	if err := FiniteDifference(in, &out, []int{3}, nil, 0); !errors.Is(err, ndi.ErrParameterOutOfRange) {
		t.Errorf("got %v, want ErrParameterOutOfRange", err)
	}
}

func TestSobelGradient(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{6, 6}, ndi.ScalarTensor())
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			ndi.SetAt(in, float64(2*x+100), 0, x, y)
		}
	}
	var out ndi.Image
	if err := SobelGradient(in, &out, 0, nil, 0); err != nil {
		t.Fatal(err)
	}
	// Smoothing across y leaves the x slope untouched.
	for y := 1; y < 5; y++ {
		for x := 1; x < 5; x++ {
			if got := ndi.At[float64](&out, 0, x, y); math.Abs(got-2) > 1e-12 {
				t.Errorf("sobel(%d,%d) = %v, want 2", x, y, got)
			}
		}
	}
	if err := SobelGradient(in, &out, 5, nil, 0); !errors.Is(err, ndi.ErrParameterOutOfRange) {
		t.Errorf("dimension out of range: got %v", err)
	}
}

func TestUniformMatchesMean(t *testing.T) {
	in, _ := ndi.New(ndi.Float64, []int{5, 4}, ndi.ScalarTensor())
	s := ndi.SamplesOf[float64](in)
	for i := range s {
		s[i] = float64((i*13)%7) + 0.5
	}
	var out ndi.Image
	err := Uniform(in, &out, ndi.ShapeRectangular, []float64{3, 3},
		[]ndi.BoundaryCondition{ndi.BCZero}, 0)
	if err != nil {
		t.Fatal(err)
	}
	at := func(x, y int) float64 {
		if x < 0 || x >= 5 || y < 0 || y >= 4 {
			return 0
		}
		return ndi.At[float64](in, 0, x, y)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			var hood []float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					hood = append(hood, at(x+dx, y+dy))
				}
			}
			want := stat.Mean(hood, nil)
			if got := ndi.At[float64](&out, 0, x, y); math.Abs(got-want) > 1e-12 {
				t.Errorf("mean(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestUniformEllipticCount(t *testing.T) {
	// A constant image stays constant under the mean filter, whatever
	// the neighborhood shape.
	in, _ := ndi.New(ndi.Uint8, []int{6, 6}, ndi.ScalarTensor())
	in.Fill(complex(40, 0))
	var out ndi.Image
	err := Uniform(in, &out, ndi.ShapeElliptic, []float64{5, 5},
		[]ndi.BoundaryCondition{ndi.BCClamp}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if got := ndi.At[float64](&out, 0, x, y); math.Abs(got-40) > 1e-12 {
				t.Errorf("mean(%d,%d) = %v, want 40", x, y, got)
			}
		}
	}
}

func TestConvolutionComplex(t *testing.T) {
	in, _ := ndi.New(ndi.Complex128, []int{4}, ndi.ScalarTensor())
	in.Fill(complex(1, 1))
	var out ndi.Image
	f := Filter1D{Weights: []float64{0.5}, Origin: 0, Symmetry: SymmetryEvenHalf}
	// [0.5, 0.5]: a two-tap average.
	err := SeparableConvolution(in, &out, []Filter1D{f}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.DataType() != ndi.Complex128 {
		t.Fatalf("output type %v, want Complex128", out.DataType())
	}
	if got := ndi.At[complex128](&out, 0, 1); got != complex(1, 1) {
		t.Errorf("averaged constant = %v, want 1+1i", got)
	}
}

func BenchmarkSeparableConvolution(b *testing.B) {
	in, _ := ndi.New(ndi.Float64, []int{256, 256}, ndi.ScalarTensor())
	f := Filter1D{Weights: []float64{0.25, 0.5, 0.25}, Origin: -1}
	var out ndi.Image
	for b.Loop() {
		if err := SeparableConvolution(in, &out, []Filter1D{f}, nil, 0); err != nil {
			b.Fatal(err)
		}
	}
}
