package wire

import (
	"fmt"
)

// Kind is the declared type of a registered variable.
type Kind uint8

const (
	// KindInvalid is the zero Kind. It never appears in a valid registry.
	KindInvalid Kind = iota
	// KindInt is a native-endian signed 32-bit integer.
	KindInt
	// KindDouble is an IEEE-754 float64.
	KindDouble
	// KindString is a u32 length prefix followed by UTF-8 bytes.
	KindString
	// KindArray is an N-dimensional int32 or float64 array.
	KindArray
)

// Registry tags. The solver side matches on these exact strings.
const (
	tagInt    = "int"
	tagDouble = "double"
	tagString = "string"
	tagArray  = "array"
)

// String returns the registry tag of k.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return tagInt
	case KindDouble:
		return tagDouble
	case KindString:
		return tagString
	case KindArray:
		return tagArray
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a registry tag back to a Kind.
func ParseKind(tag string) (Kind, error) {
	switch tag {
	case tagInt:
		return KindInt, nil
	case tagDouble:
		return KindDouble, nil
	case tagString:
		return KindString, nil
	case tagArray:
		return KindArray, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, tag)
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as tags.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindInt, KindDouble, KindString, KindArray:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DType is the element type discriminant stored in an array header.
type DType uint32

const (
	// DTypeInt32 marks int32 elements.
	DTypeInt32 DType = 0
	// DTypeFloat64 marks float64 elements.
	DTypeFloat64 DType = 1
)

// ElemSize returns the element width in bytes, or 0 for an unknown dtype.
func (d DType) ElemSize() int {
	switch d {
	case DTypeInt32:
		return IntSize
	case DTypeFloat64:
		return DoubleSize
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case DTypeInt32:
		return "int32"
	case DTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("dtype(%d)", uint32(d))
	}
}
