package format

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder is a layout's leading byte-order marker. The zero value means
// little-endian.
type ByteOrder byte

const (
	LittleEndian ByteOrder = '<'
	BigEndian    ByteOrder = '>'
	Network      ByteOrder = '!'
	Native       ByteOrder = '='
)

type appendOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// ParseByteOrder accepts "", "<", ">", "!" and "=". Native alignment ("@")
// is not supported.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "", "<":
		return LittleEndian, nil
	case ">":
		return BigEndian, nil
	case "!":
		return Network, nil
	case "=":
		return Native, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrByteOrder, s)
	}
}

// Marker returns the normalized marker character.
func (o ByteOrder) Marker() string {
	if o == 0 {
		return string(LittleEndian)
	}
	return string(rune(o))
}

func (o ByteOrder) String() string {
	return o.Marker()
}

// Check reports whether o is a supported marker.
func (o ByteOrder) Check() error {
	_, err := o.binary()
	return err
}

func (o ByteOrder) binary() (appendOrder, error) {
	switch o {
	case 0, LittleEndian:
		return binary.LittleEndian, nil
	case BigEndian, Network:
		return binary.BigEndian, nil
	case Native:
		return binary.NativeEndian, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrByteOrder, rune(o))
	}
}
