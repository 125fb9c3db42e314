package sdr

import "fmt"

// Type identifies the sample type of a stream. Every Config carries one and
// every typed node is associated with one at instantiation.
type Type uint8

// The type identifiers, stable on the wire for logs and cross-node
// diagnostics.
const (
	TypeUndefined Type = iota
	TypeU8
	TypeS8
	TypeU16
	TypeS16
	TypeF32
	TypeF64
	TypeCU8
	TypeCS8
	TypeCU16
	TypeCS16
	TypeCF32
	TypeCF64
)

// Complex is an I/Q sample pair of the scalar type T. The memory layout is
// two consecutive scalars (I first), which allows interleaved pair streams
// to be reinterpreted as complex streams and back.
type Complex[T Scalar] struct {
	Re, Im T
}

// Scalar is the set of sample scalar types supported by the runtime.
type Scalar interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~int32 | ~float32 | ~float64
}

func (t Type) String() string {
	switch t {
	case TypeU8:
		return "uint8"
	case TypeS8:
		return "int8"
	case TypeU16:
		return "uint16"
	case TypeS16:
		return "int16"
	case TypeF32:
		return "float"
	case TypeF64:
		return "double"
	case TypeCU8:
		return "complex uint8"
	case TypeCS8:
		return "complex int8"
	case TypeCU16:
		return "complex uint16"
	case TypeCS16:
		return "complex int16"
	case TypeCF32:
		return "complex float"
	case TypeCF64:
		return "complex double"
	}
	return "undefined"
}

// IsComplex returns true for the I/Q pair types.
func (t Type) IsComplex() bool { return t >= TypeCU8 && t <= TypeCF64 }

// Size returns the size of one sample of this type in bytes.
func (t Type) Size() int {
	switch t {
	case TypeU8, TypeS8:
		return 1
	case TypeU16, TypeS16, TypeCU8, TypeCS8:
		return 2
	case TypeF32, TypeCU16, TypeCS16:
		return 4
	case TypeF64, TypeCF32:
		return 8
	case TypeCF64:
		return 16
	}
	return 0
}

// TypeOf returns the type identifier for the scalar type T.
func TypeOf[T Scalar]() Type {
	var v T
	switch any(v).(type) {
	case uint8:
		return TypeU8
	case int8:
		return TypeS8
	case uint16:
		return TypeU16
	case int16:
		return TypeS16
	case float32:
		return TypeF32
	case float64:
		return TypeF64
	}
	return TypeUndefined
}

// ComplexTypeOf returns the type identifier for Complex[T].
func ComplexTypeOf[T Scalar]() Type {
	switch TypeOf[T]() {
	case TypeU8:
		return TypeCU8
	case TypeS8:
		return TypeCS8
	case TypeU16:
		return TypeCU16
	case TypeS16:
		return TypeCS16
	case TypeF32:
		return TypeCF32
	case TypeF64:
		return TypeCF64
	}
	return TypeUndefined
}

// Traits carries the static per-scalar fixed-point properties: the scale
// factor from floating point to the integer range and the shift exponent
// used to renormalise after super-scalar arithmetic. For the floating point
// scalars scale is 1 and shift is 0.
type Traits struct {
	Scale float64
	Shift uint
}

// TraitsOf returns the fixed-point traits of the scalar type T. Complex
// samples share the traits of their scalar.
func TraitsOf[T Scalar]() Traits {
	var v T
	switch any(v).(type) {
	case uint8, int8:
		return Traits{Scale: 127, Shift: 8}
	case uint16, int16:
		return Traits{Scale: 32767, Shift: 16}
	}
	return Traits{Scale: 1, Shift: 0}
}

// Config is the collection of stream properties a source announces to its
// sinks: the sample type, the sample rate, the maximum buffer size in
// samples and the number of buffers in flight. A zero field means "not yet
// known"; sinks must tolerate partially filled configurations during graph
// assembly.
type Config struct {
	Type       Type
	SampleRate float64
	BufferSize int
	NumBuffers int
}

// NewConfig assembles a complete configuration.
func NewConfig(t Type, sampleRate float64, bufferSize, numBuffers int) Config {
	return Config{Type: t, SampleRate: sampleRate, BufferSize: bufferSize, NumBuffers: numBuffers}
}

// HasType returns true if the sample type is set.
func (c Config) HasType() bool { return c.Type != TypeUndefined }

// HasSampleRate returns true if the sample rate is set.
func (c Config) HasSampleRate() bool { return c.SampleRate != 0 }

// HasBufferSize returns true if the buffer size is set.
func (c Config) HasBufferSize() bool { return c.BufferSize != 0 }

// HasNumBuffers returns true if the buffer count is set.
func (c Config) HasNumBuffers() bool { return c.NumBuffers != 0 }

func (c Config) String() string {
	return fmt.Sprintf("{type %s, rate %g Hz, buffer %d x %d}",
		c.Type, c.SampleRate, c.NumBuffers, c.BufferSize)
}
