package ndi

import (
	"math"
	"testing"
)

func TestAddSatUint8(t *testing.T) {
	a := []uint8{250, 100, 0, 255}
	b := []uint8{10, 50, 100, 1}
	expected := []uint8{255, 150, 100, 255} // 250+10 saturates to 255
	for i := range a {
		if got := AddSat(a[i], b[i]); got != expected[i] {
			t.Errorf("AddSat(%d, %d) = %d, want %d", a[i], b[i], got, expected[i])
		}
	}
}

func TestAddSatInt8(t *testing.T) {
	a := []int8{120, -120, 50, -50}
	b := []int8{10, -10, 50, -50}
	expected := []int8{127, -128, 100, -100} // 120+10=130 saturates to 127
	for i := range a {
		if got := AddSat(a[i], b[i]); got != expected[i] {
			t.Errorf("AddSat(%d, %d) = %d, want %d", a[i], b[i], got, expected[i])
		}
	}
}

func TestSubSatUint8(t *testing.T) {
	a := []uint8{10, 100, 0, 255}
	b := []uint8{20, 50, 100, 1}
	expected := []uint8{0, 50, 0, 254} // 10-20 saturates to 0
	for i := range a {
		if got := SubSat(a[i], b[i]); got != expected[i] {
			t.Errorf("SubSat(%d, %d) = %d, want %d", a[i], b[i], got, expected[i])
		}
	}
}

func TestSubSatInt16(t *testing.T) {
	if got := SubSat(int16(math.MinInt16), int16(1)); got != math.MinInt16 {
		t.Errorf("SubSat(min, 1) = %d, want %d", got, math.MinInt16)
	}
	if got := SubSat(int16(math.MaxInt16), int16(-1)); got != math.MaxInt16 {
		t.Errorf("SubSat(max, -1) = %d, want %d", got, math.MaxInt16)
	}
}

func TestMulSatUint32(t *testing.T) {
	if got := MulSat(uint32(1<<20), uint32(1<<20)); got != math.MaxUint32 {
		t.Errorf("MulSat(2^20, 2^20) = %d, want %d", got, uint32(math.MaxUint32))
	}
	if got := MulSat(uint32(7), uint32(6)); got != 42 {
		t.Errorf("MulSat(7, 6) = %d, want 42", got)
	}
}

func TestMulSatInt32(t *testing.T) {
	if got := MulSat(int32(1<<20), int32(1<<20)); got != math.MaxInt32 {
		t.Errorf("MulSat(2^20, 2^20) = %d, want %d", got, int32(math.MaxInt32))
	}
	if got := MulSat(int32(-1<<20), int32(1<<20)); got != math.MinInt32 {
		t.Errorf("MulSat(-2^20, 2^20) = %d, want %d", got, int32(math.MinInt32))
	}
}

func TestDivSatByZero(t *testing.T) {
	if got := DivSat(int8(5), int8(0)); got != math.MaxInt8 {
		t.Errorf("DivSat(5, 0) = %d, want %d", got, int8(math.MaxInt8))
	}
	if got := DivSat(int8(-5), int8(0)); got != math.MinInt8 {
		t.Errorf("DivSat(-5, 0) = %d, want %d", got, int8(math.MinInt8))
	}
	if got := DivSat(uint16(9), uint16(0)); got != math.MaxUint16 {
		t.Errorf("DivSat(9, 0) = %d, want %d", got, uint16(math.MaxUint16))
	}
	if got := DivSat(1.0, 0.0); !math.IsInf(got, 1) {
		t.Errorf("DivSat(1.0, 0.0) = %v, want +Inf", got)
	}
}

func TestSatFloats(t *testing.T) {
	if got := AddSat(float32(1.5), float32(2.5)); got != 4 {
		t.Errorf("AddSat(1.5, 2.5) = %v, want 4", got)
	}
	if got := MulSat(2.0, -3.0); got != -6 {
		t.Errorf("MulSat(2, -3) = %v, want -6", got)
	}
}

func TestSatComplex(t *testing.T) {
	if got := MulSat(complex64(1+1i), complex64(1-1i)); got != 2 {
		t.Errorf("MulSat(1+i, 1-i) = %v, want 2", got)
	}
	if got := SubSat(complex(1.0, 2.0), complex(0.5, 0.5)); got != complex(0.5, 1.5) {
		t.Errorf("SubSat = %v, want 0.5+1.5i", got)
	}
}

func TestSatBinaryLogic(t *testing.T) {
	// Binary arithmetic degenerates to logic.
	cases := []struct {
		a, b                Binary
		add, sub, mul, div Binary
	}{
		{0, 0, 0, 0, 0, 1},
		{0, 1, 1, 0, 0, 0},
		{1, 0, 1, 1, 0, 1},
		{1, 1, 1, 0, 1, 1},
	}
	for _, c := range cases {
		if got := AddSat(c.a, c.b); got != c.add {
			t.Errorf("AddSat(%d, %d) = %d, want %d", c.a, c.b, got, c.add)
		}
		if got := SubSat(c.a, c.b); got != c.sub {
			t.Errorf("SubSat(%d, %d) = %d, want %d", c.a, c.b, got, c.sub)
		}
		if got := MulSat(c.a, c.b); got != c.mul {
			t.Errorf("MulSat(%d, %d) = %d, want %d", c.a, c.b, got, c.mul)
		}
		if got := DivSat(c.a, c.b); got != c.div {
			t.Errorf("DivSat(%d, %d) = %d, want %d", c.a, c.b, got, c.div)
		}
	}
}
