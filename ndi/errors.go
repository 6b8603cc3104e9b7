package ndi

import "errors"

// Errors reported by preflight checks. All checks run before any kernel is
// invoked; a failed call returns one of these (wrapped with context) and
// leaves the caller's images untouched.
var (
	// ErrShapeMismatch indicates images that do not align in
	// dimensionality, extent or tensor shape.
	ErrShapeMismatch = errors.New("ndi: shape mismatch")

	// ErrTypeNotSupported indicates a runtime type tag outside the
	// breadth declared by the operation's dispatch table.
	ErrTypeNotSupported = errors.New("ndi: type not supported")

	// ErrStrideMismatch indicates a PixelTableOffsets applied to an image
	// whose strides differ from the image it was prepared for.
	ErrStrideMismatch = errors.New("ndi: stride mismatch")

	// ErrEmptyNeighborhood indicates iteration requested over a pixel
	// table with zero pixels.
	ErrEmptyNeighborhood = errors.New("ndi: empty neighborhood")

	// ErrParameterOutOfRange indicates a parameter such as a dimension
	// index that exceeds the image dimensionality.
	ErrParameterOutOfRange = errors.New("ndi: parameter out of range")
)
