package ndi

import (
	"math"
	"math/cmplx"
)

// DType is the runtime tag for an image's sample type. The set is closed:
// every generic operation is instantiated once per tag and registered in a
// dispatch table, so a tag outside an operation's table fails with
// ErrTypeNotSupported rather than silently truncating.
type DType int

// Supported sample types.
const (
	Bin DType = iota
	Uint8
	Uint16
	Uint32
	Int8
	Int16
	Int32
	Float32
	Float64
	Complex64
	Complex128
)

// DTypes lists all tags, in promotion order within each class.
var DTypes = []DType{
	Bin, Uint8, Uint16, Uint32, Int8, Int16, Int32,
	Float32, Float64, Complex64, Complex128,
}

// Size returns the sample size in bytes.
func (dt DType) Size() int {
	switch dt {
	case Bin, Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		return 0
	}
}

// String returns a human-readable name for the tag.
func (dt DType) String() string {
	switch dt {
	case Bin:
		return "bin"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	default:
		return "unknown"
	}
}

// IsBinary reports whether the tag is the binary type.
func (dt DType) IsBinary() bool { return dt == Bin }

// IsUnsigned reports whether the tag is an unsigned integer type.
func (dt DType) IsUnsigned() bool {
	return dt == Uint8 || dt == Uint16 || dt == Uint32
}

// IsSigned reports whether the tag is a signed integer type.
func (dt DType) IsSigned() bool {
	return dt == Int8 || dt == Int16 || dt == Int32
}

// IsInteger reports whether the tag is an integer type (excludes Bin).
func (dt DType) IsInteger() bool { return dt.IsUnsigned() || dt.IsSigned() }

// IsFloat reports whether the tag is a floating-point type.
func (dt DType) IsFloat() bool { return dt == Float32 || dt == Float64 }

// IsReal reports whether the tag is an integer or float type.
// Bin and the complex types are not real.
func (dt DType) IsReal() bool { return dt.IsInteger() || dt.IsFloat() }

// IsComplex reports whether the tag is a complex type.
func (dt DType) IsComplex() bool { return dt == Complex64 || dt == Complex128 }

// Flex returns the floating-point (or complex) type an operation should
// compute in when exact integer arithmetic is not wanted: float and complex
// tags map to themselves, everything else to Float64.
func (dt DType) Flex() DType {
	switch dt {
	case Float32, Float64, Complex64, Complex128:
		return dt
	default:
		return Float64
	}
}

// Common returns the type a dyadic operation should coerce both operands
// to before dispatch. Bin defers to the other type, complex dominates
// float, float dominates integer, and mixed-signedness integers of equal
// width promote to a type wide enough for both.
func (dt DType) Common(other DType) DType {
	if dt == other {
		return dt
	}
	if dt == Bin {
		return other
	}
	if other == Bin {
		return dt
	}
	if dt.IsComplex() || other.IsComplex() {
		if dt == Complex128 || other == Complex128 ||
			dt == Float64 || other == Float64 {
			return Complex128
		}
		return Complex64
	}
	if dt.IsFloat() || other.IsFloat() {
		if dt == Float64 || other == Float64 {
			return Float64
		}
		if dt.IsInteger() || other.IsInteger() {
			// float32 cannot hold every 32-bit integer exactly,
			// but matches the narrow-float convention for the
			// smaller integers.
			if dt == Uint32 || other == Uint32 || dt == Int32 || other == Int32 {
				return Float64
			}
		}
		return Float32
	}
	// Both integer.
	if dt.IsUnsigned() == other.IsUnsigned() {
		if dt.Size() >= other.Size() {
			return dt
		}
		return other
	}
	// Mixed signedness: need a signed type wider than the unsigned one.
	u, s := dt, other
	if s.IsUnsigned() {
		u, s = s, u
	}
	switch {
	case u == Uint8 && s.Size() > 1:
		return s
	case u == Uint8:
		return Int16
	case u == Uint16 && s.Size() > 2:
		return s
	case u == Uint16:
		return Int32
	default:
		// No integer type holds both uint32 and a signed value.
		return Float64
	}
}

// AllocSamples allocates a zeroed sample slice of n samples for the tag.
// The result is one of []Binary, []uint8, ..., []complex128.
func AllocSamples(dt DType, n int) any {
	switch dt {
	case Bin:
		return make([]Binary, n)
	case Uint8:
		return make([]uint8, n)
	case Uint16:
		return make([]uint16, n)
	case Uint32:
		return make([]uint32, n)
	case Int8:
		return make([]int8, n)
	case Int16:
		return make([]int16, n)
	case Int32:
		return make([]int32, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	case Complex64:
		return make([]complex64, n)
	case Complex128:
		return make([]complex128, n)
	default:
		return nil
	}
}

// SampleLen returns the length of a sample slice produced by AllocSamples.
func SampleLen(data any) int {
	switch d := data.(type) {
	case []Binary:
		return len(d)
	case []uint8:
		return len(d)
	case []uint16:
		return len(d)
	case []uint32:
		return len(d)
	case []int8:
		return len(d)
	case []int16:
		return len(d)
	case []int32:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []complex64:
		return len(d)
	case []complex128:
		return len(d)
	default:
		return 0
	}
}

// DTypeOf returns the tag for a sample slice produced by AllocSamples.
func DTypeOf(data any) (DType, bool) {
	switch data.(type) {
	case []Binary:
		return Bin, true
	case []uint8:
		return Uint8, true
	case []uint16:
		return Uint16, true
	case []uint32:
		return Uint32, true
	case []int8:
		return Int8, true
	case []int16:
		return Int16, true
	case []int32:
		return Int32, true
	case []float32:
		return Float32, true
	case []float64:
		return Float64, true
	case []complex64:
		return Complex64, true
	case []complex128:
		return Complex128, true
	default:
		return 0, false
	}
}

// ReadSample reads the sample at index i through the complex128 portal.
// Real samples return a zero imaginary part; binary samples return 0 or 1.
func ReadSample(data any, i int) complex128 {
	switch d := data.(type) {
	case []Binary:
		return complex(float64(d[i]), 0)
	case []uint8:
		return complex(float64(d[i]), 0)
	case []uint16:
		return complex(float64(d[i]), 0)
	case []uint32:
		return complex(float64(d[i]), 0)
	case []int8:
		return complex(float64(d[i]), 0)
	case []int16:
		return complex(float64(d[i]), 0)
	case []int32:
		return complex(float64(d[i]), 0)
	case []float32:
		return complex(float64(d[i]), 0)
	case []float64:
		return complex(d[i], 0)
	case []complex64:
		return complex128(d[i])
	case []complex128:
		return d[i]
	default:
		return 0
	}
}

// WriteSample writes v to index i, converting through the complex128
// portal with the same clamping rules as ConvertBuffer: integer targets
// round then clamp to the type range, Bin is set iff v is nonzero, and
// real targets of a complex value take the modulus.
func WriteSample(data any, i int, v complex128) {
	switch d := data.(type) {
	case []Binary:
		d[i] = BinaryOf(v != 0)
	case []uint8:
		d[i] = uint8(clampRound(realPart(v), 0, math.MaxUint8))
	case []uint16:
		d[i] = uint16(clampRound(realPart(v), 0, math.MaxUint16))
	case []uint32:
		d[i] = uint32(clampRound(realPart(v), 0, math.MaxUint32))
	case []int8:
		d[i] = int8(clampRound(realPart(v), math.MinInt8, math.MaxInt8))
	case []int16:
		d[i] = int16(clampRound(realPart(v), math.MinInt16, math.MaxInt16))
	case []int32:
		d[i] = int32(clampRound(realPart(v), math.MinInt32, math.MaxInt32))
	case []float32:
		d[i] = float32(realPart(v))
	case []float64:
		d[i] = realPart(v)
	case []complex64:
		d[i] = complex64(v)
	case []complex128:
		d[i] = v
	default:
	}
}

// realPart projects a portal value onto the reals: the real part when the
// imaginary part is zero, the modulus otherwise.
func realPart(v complex128) float64 {
	if imag(v) == 0 {
		return real(v)
	}
	return cmplx.Abs(v)
}

func clampRound(v, lo, hi float64) float64 {
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
