package ndi

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Saturated sample arithmetic. Integer results clamp to the type's valid
// range instead of wrapping (uint8: 250 + 10 = 255, not 4), floats and
// complexes use plain arithmetic, and Binary behaves as logic: add is or,
// subtract is and-not, multiply is and. These are the per-sample primitives
// the scan kernels build on; numeric edge cases here are conventions, not
// errors, so a scan is never aborted mid-way by sample values.

// AddSat returns a + b with saturation.
func AddSat[T Sample](a, b T) T {
	switch x := any(a).(type) {
	case Binary:
		return any(x | any(b).(Binary)).(T)
	case float32:
		return any(x + any(b).(float32)).(T)
	case float64:
		return any(x + any(b).(float64)).(T)
	case complex64:
		return any(x + any(b).(complex64)).(T)
	case complex128:
		return any(x + any(b).(complex128)).(T)
	default:
		return fromI64[T](toI64(a) + toI64(b))
	}
}

// SubSat returns a - b with saturation.
func SubSat[T Sample](a, b T) T {
	switch x := any(a).(type) {
	case Binary:
		return any(x &^ any(b).(Binary)).(T)
	case float32:
		return any(x - any(b).(float32)).(T)
	case float64:
		return any(x - any(b).(float64)).(T)
	case complex64:
		return any(x - any(b).(complex64)).(T)
	case complex128:
		return any(x - any(b).(complex128)).(T)
	default:
		return fromI64[T](toI64(a) - toI64(b))
	}
}

// MulSat returns a * b with saturation.
func MulSat[T Sample](a, b T) T {
	switch x := any(a).(type) {
	case Binary:
		return any(x & any(b).(Binary)).(T)
	case float32:
		return any(x * any(b).(float32)).(T)
	case float64:
		return any(x * any(b).(float64)).(T)
	case complex64:
		return any(x * any(b).(complex64)).(T)
	case complex128:
		return any(x * any(b).(complex128)).(T)
	case uint32:
		// The product of two uint32 values overflows int64; use the
		// unsigned path.
		p := uint64(x) * uint64(any(b).(uint32))
		if p > math.MaxUint32 {
			p = math.MaxUint32
		}
		return any(uint32(p)).(T)
	default:
		return fromI64[T](toI64(a) * toI64(b))
	}
}

// DivSat returns a / b with saturation. Integer division by zero yields
// the type's maximum (minimum for a negative dividend); float division by
// zero follows IEEE semantics.
func DivSat[T Sample](a, b T) T {
	switch x := any(a).(type) {
	case Binary:
		if any(b).(Binary) == 0 {
			return any(Binary(1)).(T)
		}
		return a
	case float32:
		return any(x / any(b).(float32)).(T)
	case float64:
		return any(x / any(b).(float64)).(T)
	case complex64:
		return any(x / any(b).(complex64)).(T)
	case complex128:
		return any(x / any(b).(complex128)).(T)
	default:
		num, den := toI64(a), toI64(b)
		if den == 0 {
			if num < 0 {
				return fromI64[T](math.MinInt64)
			}
			return fromI64[T](math.MaxInt64)
		}
		return fromI64[T](num / den)
	}
}

// toI64 widens an integer sample to int64. Calling it with a non-integer
// sample type is a bug in the caller.
func toI64[T Sample](v T) int64 {
	switch x := any(v).(type) {
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	default:
		panic("ndi: toI64 on non-integer sample")
	}
}

// fromI64 narrows an int64 to an integer sample type, clamping to its range.
func fromI64[T Sample](v int64) T {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return any(uint8(clamp(v, 0, math.MaxUint8))).(T)
	case uint16:
		return any(uint16(clamp(v, 0, math.MaxUint16))).(T)
	case uint32:
		return any(uint32(clamp(v, 0, math.MaxUint32))).(T)
	case int8:
		return any(int8(clamp(v, math.MinInt8, math.MaxInt8))).(T)
	case int16:
		return any(int16(clamp(v, math.MinInt16, math.MaxInt16))).(T)
	case int32:
		return any(int32(clamp(v, math.MinInt32, math.MaxInt32))).(T)
	default:
		panic("ndi: fromI64 on non-integer sample")
	}
}

// clamp limits v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
