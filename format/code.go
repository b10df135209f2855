package format

import "fmt"

// Code is a single-character encoding code.
type Code byte

// Encoding codes. The set is closed.
const (
	Pad     Code = 'x'
	Char    Code = 'c'
	Int8    Code = 'b'
	Uint8   Code = 'B'
	Bool    Code = '?'
	Int16   Code = 'h'
	Uint16  Code = 'H'
	Int32   Code = 'i'
	Uint32  Code = 'I'
	Long    Code = 'l'
	ULong   Code = 'L'
	Int64   Code = 'q'
	Uint64  Code = 'Q'
	Float16 Code = 'e'
	Float32 Code = 'f'
	Float64 Code = 'd'
	Bytes   Code = 's'
	Pascal  Code = 'p'
)

// Kind groups codes by the Go value they carry.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPad
	KindBytes
	KindPascal
	KindBool
	KindInt
	KindUint
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindPad:
		return "pad"
	case KindBytes:
		return "bytes"
	case KindPascal:
		return "pascal"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return "invalid"
	}
}

type codeInfo struct {
	kind Kind
	size int
}

var codes = map[Code]codeInfo{
	Pad:     {KindPad, 1},
	Char:    {KindBytes, 1},
	Int8:    {KindInt, 1},
	Uint8:   {KindUint, 1},
	Bool:    {KindBool, 1},
	Int16:   {KindInt, 2},
	Uint16:  {KindUint, 2},
	Int32:   {KindInt, 4},
	Uint32:  {KindUint, 4},
	Long:    {KindInt, 4},
	ULong:   {KindUint, 4},
	Int64:   {KindInt, 8},
	Uint64:  {KindUint, 8},
	Float16: {KindFloat, 2},
	Float32: {KindFloat, 4},
	Float64: {KindFloat, 8},
	Bytes:   {KindBytes, 1},
	Pascal:  {KindPascal, 1},
}

// Native-only codes have no standard size and are rejected.
var nativeOnly = map[Code]struct{}{
	'n': {},
	'N': {},
	'P': {},
}

// ParseCode validates a one-character code string.
func ParseCode(s string) (Code, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCode, s)
	}
	c := Code(s[0])
	if err := c.Check(); err != nil {
		return 0, err
	}
	return c, nil
}

// Check reports whether c is part of the vocabulary.
func (c Code) Check() error {
	if _, ok := codes[c]; ok {
		return nil
	}
	if _, ok := nativeOnly[c]; ok {
		return fmt.Errorf("%w: %q is native-only", ErrUnknownCode, rune(c))
	}
	return fmt.Errorf("%w: %q", ErrUnknownCode, rune(c))
}

// Kind returns KindInvalid for codes outside the vocabulary.
func (c Code) Kind() Kind {
	return codes[c].kind
}

// Size is the width in bytes of one unit, 0 for unknown codes.
func (c Code) Size() int {
	return codes[c].size
}

func (c Code) String() string {
	return string(rune(c))
}
