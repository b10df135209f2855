package dynstruct

import (
	"fmt"
	"strings"

	"github.com/danmuck/dynstruct/field"
	"github.com/danmuck/dynstruct/format"
)

// Struct is one message instance. It owns clones of its schema's field
// descriptors. A Struct is not safe for concurrent mutation.
type Struct struct {
	schema *Schema
	fields []field.Descriptor
	index  map[string]int
}

// NamedValue is one field's effective value.
type NamedValue struct {
	Name  string
	Value any
}

// Values is an ordered name -> value listing in declaration order.
type Values []NamedValue

// Map returns the values keyed by field name.
func (v Values) Map() map[string]any {
	out := make(map[string]any, len(v))
	for _, nv := range v {
		out[nv.Name] = nv.Value
	}
	return out
}

// Schema returns the declaration the instance was built from.
func (s *Struct) Schema() *Schema {
	return s.schema
}

// Field returns a copy of the instance's descriptor for name.
func (s *Struct) Field(name string) (field.Descriptor, error) {
	f, err := s.lookup("get", name)
	if err != nil {
		return field.Descriptor{}, err
	}
	return f.Clone(), nil
}

// Get returns the field's value, or its default when unset. Slice values are
// copies; use Set to change them.
func (s *Struct) Get(name string) (any, error) {
	f, err := s.lookup("get", name)
	if err != nil {
		return nil, err
	}
	return f.Snapshot(), nil
}

// Set stores value on the instance's copy of the field. The value is not
// checked against the encoding until Pack.
func (s *Struct) Set(name string, value any) error {
	f, err := s.lookup("set", name)
	if err != nil {
		return err
	}
	f.Value = value
	return nil
}

// Reset clears the field's value so reads fall back to the default.
func (s *Struct) Reset(name string) error {
	f, err := s.lookup("reset", name)
	if err != nil {
		return err
	}
	f.Value = nil
	return nil
}

func (s *Struct) Int(name string) (int64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	i, err := format.ToInt64(v)
	if err != nil {
		return 0, s.errorf("get", name, ErrEncoding, err)
	}
	return i, nil
}

func (s *Struct) Uint(name string) (uint64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	u, err := format.ToUint64(v)
	if err != nil {
		return 0, s.errorf("get", name, ErrEncoding, err)
	}
	return u, nil
}

func (s *Struct) Float(name string) (float64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	f, err := format.ToFloat64(v)
	if err != nil {
		return 0, s.errorf("get", name, ErrEncoding, err)
	}
	return f, nil
}

func (s *Struct) Bool(name string) (bool, error) {
	v, err := s.Get(name)
	if err != nil {
		return false, err
	}
	b, err := format.ToBool(v)
	if err != nil {
		return false, s.errorf("get", name, ErrEncoding, err)
	}
	return b, nil
}

// Bytes returns a copy of a byte-string field.
func (s *Struct) Bytes(name string) ([]byte, error) {
	v, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	b, err := format.ToBytes(v)
	if err != nil {
		return nil, s.errorf("get", name, ErrEncoding, err)
	}
	return b, nil
}

// Layout renders the current layout string, e.g. "<BB2s".
func (s *Struct) Layout() string {
	return s.layout().String()
}

// Size is the byte length implied by the current layout.
func (s *Struct) Size() int {
	return s.layout().Size()
}

// StaticSize is the byte length of every field except the match-length one.
func (s *Struct) StaticSize() int {
	n := 0
	for _, f := range s.fields {
		if !f.MatchLength {
			n += f.Segment().Size()
		}
	}
	return n
}

// Values lists every field's effective value in declaration order.
func (s *Struct) Values() Values {
	out := make(Values, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, NamedValue{Name: f.Name, Value: f.Snapshot()})
	}
	return out
}

func (s *Struct) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(s.schema.Name)
	for _, f := range s.fields {
		if f.Code.Kind() == format.KindPad {
			continue
		}
		v := f.Effective()
		if raw, ok := v.([]byte); ok {
			fmt.Fprintf(&b, " %s=%q", f.Name, raw)
			continue
		}
		fmt.Fprintf(&b, " %s=%v", f.Name, v)
	}
	b.WriteString(">")
	return b.String()
}

func (s *Struct) layout() format.Layout {
	l := format.Layout{
		Order:    s.schema.ByteOrder,
		Segments: make([]format.Segment, len(s.fields)),
	}
	for i, f := range s.fields {
		l.Segments[i] = f.Segment()
	}
	return l
}

func (s *Struct) lookup(op, name string) (*field.Descriptor, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, &Error{Schema: s.schema.Name, Field: name, Op: op, Kind: ErrUnknownField}
	}
	return &s.fields[i], nil
}

func (s *Struct) errorf(op, name string, kind, err error) error {
	return &Error{Schema: s.schema.Name, Field: name, Op: op, Kind: kind, Err: err}
}
