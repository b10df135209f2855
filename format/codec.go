package format

import (
	"fmt"
	"math"
	"reflect"

	"github.com/x448/float16"
)

// Values handled by Append and returned by Decode.
//
//	x      nothing (Append ignores the value, Decode returns nil)
//	c, s   []byte of exactly Repeat bytes (Append also takes a string)
//	p      []byte of at most Repeat-1 bytes (and at most 255)
//	?      bool
//	b h i l q   int8 int16 int32 int32 int64
//	B H I L Q   uint8 uint16 uint32 uint32 uint64
//	e f    float32
//	d      float64
//
// Numeric and bool segments carry a scalar when Repeat is 1 and a slice of
// Repeat elements otherwise. Append accepts any Go integer, float or bool kind
// (including named types) and any slice of them.

// Append encodes v as segment s and appends it to dst.
func (s Segment) Append(dst []byte, order ByteOrder, v any) ([]byte, error) {
	bo, err := order.binary()
	if err != nil {
		return dst, err
	}
	if s.Repeat < 0 {
		return dst, fmt.Errorf("%w: negative repeat %d", ErrLength, s.Repeat)
	}
	switch s.Code.Kind() {
	case KindPad:
		return append(dst, make([]byte, s.Repeat)...), nil
	case KindBytes:
		b, err := ToBytes(v)
		if err != nil {
			return dst, err
		}
		if len(b) != s.Repeat {
			return dst, fmt.Errorf("%w: %d bytes for %s", ErrLength, len(b), s)
		}
		return append(dst, b...), nil
	case KindPascal:
		b, err := ToBytes(v)
		if err != nil {
			return dst, err
		}
		if s.Repeat == 0 {
			if len(b) != 0 {
				return dst, fmt.Errorf("%w: %d bytes for %s", ErrLength, len(b), s)
			}
			return dst, nil
		}
		if len(b) > s.Repeat-1 || len(b) > math.MaxUint8 {
			return dst, fmt.Errorf("%w: %d bytes for %s", ErrLength, len(b), s)
		}
		dst = append(dst, byte(len(b)))
		dst = append(dst, b...)
		return append(dst, make([]byte, s.Repeat-1-len(b))...), nil
	case KindInvalid:
		return dst, s.Code.Check()
	}

	elems, err := elements(v, s.Repeat)
	if err != nil {
		return dst, err
	}
	for _, e := range elems {
		dst, err = appendUnit(dst, bo, s.Code, e)
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// Decode reads segment s from the first s.Size() bytes of src.
func (s Segment) Decode(src []byte, order ByteOrder) (any, error) {
	bo, err := order.binary()
	if err != nil {
		return nil, err
	}
	if err := s.Code.Check(); err != nil {
		return nil, err
	}
	if s.Repeat < 0 {
		return nil, fmt.Errorf("%w: negative repeat %d", ErrLength, s.Repeat)
	}
	size := s.Size()
	if len(src) < size {
		return nil, fmt.Errorf("%w: need %d bytes for %s, have %d", ErrShortBuffer, size, s, len(src))
	}
	src = src[:size]

	switch s.Code.Kind() {
	case KindPad:
		return nil, nil
	case KindBytes:
		out := make([]byte, size)
		copy(out, src)
		return out, nil
	case KindPascal:
		if size == 0 {
			return []byte{}, nil
		}
		n := min(int(src[0]), size-1)
		out := make([]byte, n)
		copy(out, src[1:1+n])
		return out, nil
	}

	unit := s.Code.Size()
	if s.Repeat == 1 {
		return decodeUnit(src, bo, s.Code), nil
	}
	out := reflect.MakeSlice(reflect.SliceOf(scalarType(s.Code)), s.Repeat, s.Repeat)
	for i := 0; i < s.Repeat; i++ {
		out.Index(i).Set(reflect.ValueOf(decodeUnit(src[i*unit:], bo, s.Code)))
	}
	return out.Interface(), nil
}

// Units reports how many encoding units v occupies under code c. Pad codes
// carry no value and report ok=false.
func Units(c Code, v any) (n int, ok bool, err error) {
	switch c.Kind() {
	case KindPad:
		return 0, false, nil
	case KindBytes:
		b, err := ToBytes(v)
		if err != nil {
			return 0, false, err
		}
		return len(b), true, nil
	case KindPascal:
		b, err := ToBytes(v)
		if err != nil {
			return 0, false, err
		}
		return len(b) + 1, true, nil
	case KindInvalid:
		return 0, false, c.Check()
	}
	if v == nil {
		return 0, false, fmt.Errorf("%w: nil value for %s", ErrType, c)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true, nil
	}
	return 1, true, nil
}

// Zero returns the canonical zero value for segment s.
func Zero(s Segment) any {
	switch s.Code.Kind() {
	case KindPad, KindInvalid:
		return nil
	case KindBytes:
		return make([]byte, max(s.Repeat, 0))
	case KindPascal:
		return []byte{}
	}
	if s.Repeat == 1 {
		return reflect.Zero(scalarType(s.Code)).Interface()
	}
	n := max(s.Repeat, 0)
	return reflect.MakeSlice(reflect.SliceOf(scalarType(s.Code)), n, n).Interface()
}

// Coerce converts v to the canonical Go value for segment s, applying the
// same range and length checks as Append.
func Coerce(s Segment, v any) (any, error) {
	if s.Code.Kind() == KindPad {
		return nil, nil
	}
	buf, err := s.Append(nil, LittleEndian, v)
	if err != nil {
		return nil, err
	}
	if s.Code.Kind() == KindPascal {
		b, _ := ToBytes(v)
		return append([]byte{}, b...), nil
	}
	return s.Decode(buf, LittleEndian)
}

func scalarType(c Code) reflect.Type {
	switch c {
	case Int8:
		return reflect.TypeOf((*int8)(nil)).Elem()
	case Uint8:
		return reflect.TypeOf((*uint8)(nil)).Elem()
	case Bool:
		return reflect.TypeOf((*bool)(nil)).Elem()
	case Int16:
		return reflect.TypeOf((*int16)(nil)).Elem()
	case Uint16:
		return reflect.TypeOf((*uint16)(nil)).Elem()
	case Int32, Long:
		return reflect.TypeOf((*int32)(nil)).Elem()
	case Uint32, ULong:
		return reflect.TypeOf((*uint32)(nil)).Elem()
	case Int64:
		return reflect.TypeOf((*int64)(nil)).Elem()
	case Uint64:
		return reflect.TypeOf((*uint64)(nil)).Elem()
	case Float16, Float32:
		return reflect.TypeOf((*float32)(nil)).Elem()
	default:
		return reflect.TypeOf((*float64)(nil)).Elem()
	}
}

// elements flattens v into exactly n unit values.
func elements(v any, n int) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrType)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		if n != 1 {
			return nil, fmt.Errorf("%w: scalar %T for repeat %d", ErrLength, v, n)
		}
		return []any{v}, nil
	}
	if rv.Len() != n {
		return nil, fmt.Errorf("%w: %d elements for repeat %d", ErrLength, rv.Len(), n)
	}
	out := make([]any, n)
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func appendUnit(dst []byte, bo appendOrder, c Code, v any) ([]byte, error) {
	switch c.Kind() {
	case KindBool:
		b, err := ToBool(v)
		if err != nil {
			return dst, err
		}
		if b {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case KindInt:
		i, err := ToInt64(v)
		if err != nil {
			return dst, err
		}
		bits := uint(c.Size() * 8)
		lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
		if bits == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		if i < lo || i > hi {
			return dst, fmt.Errorf("%w: %d does not fit %s", ErrRange, i, c)
		}
		return putUint(dst, bo, c.Size(), uint64(i)), nil
	case KindUint:
		u, err := ToUint64(v)
		if err != nil {
			return dst, err
		}
		if c.Size() < 8 && u > uint64(1)<<(uint(c.Size())*8)-1 {
			return dst, fmt.Errorf("%w: %d does not fit %s", ErrRange, u, c)
		}
		return putUint(dst, bo, c.Size(), u), nil
	case KindFloat:
		f, err := ToFloat64(v)
		if err != nil {
			return dst, err
		}
		switch c {
		case Float16:
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > 65504 {
				return dst, fmt.Errorf("%w: %g does not fit %s", ErrRange, f, c)
			}
			return bo.AppendUint16(dst, float16.Fromfloat32(float32(f)).Bits()), nil
		case Float32:
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return dst, fmt.Errorf("%w: %g does not fit %s", ErrRange, f, c)
			}
			return bo.AppendUint32(dst, math.Float32bits(float32(f))), nil
		default:
			return bo.AppendUint64(dst, math.Float64bits(f)), nil
		}
	}
	return dst, c.Check()
}

func putUint(dst []byte, bo appendOrder, width int, u uint64) []byte {
	switch width {
	case 1:
		return append(dst, byte(u))
	case 2:
		return bo.AppendUint16(dst, uint16(u))
	case 4:
		return bo.AppendUint32(dst, uint32(u))
	default:
		return bo.AppendUint64(dst, u)
	}
}

func decodeUnit(src []byte, bo appendOrder, c Code) any {
	switch c {
	case Bool:
		return src[0] != 0
	case Int8:
		return int8(src[0])
	case Uint8:
		return src[0]
	case Int16:
		return int16(bo.Uint16(src))
	case Uint16:
		return bo.Uint16(src)
	case Int32, Long:
		return int32(bo.Uint32(src))
	case Uint32, ULong:
		return bo.Uint32(src)
	case Int64:
		return int64(bo.Uint64(src))
	case Uint64:
		return bo.Uint64(src)
	case Float16:
		return float16.Frombits(bo.Uint16(src)).Float32()
	case Float32:
		return math.Float32frombits(bo.Uint32(src))
	default:
		return math.Float64frombits(bo.Uint64(src))
	}
}
