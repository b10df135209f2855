// Package field details the descriptor for one slot of a dynstruct message.
package field

import (
	"reflect"

	"github.com/danmuck/dynstruct/format"
)

// Descriptor describes one slot in a message: its encoding, how many units it
// occupies and its default and current values.
//
// A descriptor declared in a message template is shared by every instance of
// that message and must not be mutated; instances work on clones.
type Descriptor struct {
	Name string
	// Code selects the primitive encoding. The zero value declares DefaultCode.
	Code format.Code
	// Repeat is the number of Code units. Zero in a template declares 1.
	Repeat int
	// Default is used while Value is unset. A nil default falls back to the
	// zero value of Code.
	Default any
	// Value is the current value; nil means unset.
	Value any
	// MatchLength marks the field whose width is derived from the buffer
	// length. At most one field per message may set it.
	MatchLength bool
}

// DefaultCode is the encoding of a descriptor declared without a code.
const DefaultCode = format.Uint8

// Option configures a Descriptor built with New.
type Option func(*Descriptor)

// New builds a descriptor with Repeat 1. A zero code means DefaultCode.
func New(name string, code format.Code, opts ...Option) Descriptor {
	if code == 0 {
		code = DefaultCode
	}
	d := Descriptor{Name: name, Code: code, Repeat: 1}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func WithRepeat(n int) Option {
	return func(d *Descriptor) { d.Repeat = n }
}

func WithDefault(v any) Option {
	return func(d *Descriptor) { d.Default = v }
}

func WithValue(v any) Option {
	return func(d *Descriptor) { d.Value = v }
}

// MatchLength marks the field as the match-length field.
func MatchLength() Option {
	return func(d *Descriptor) { d.MatchLength = true }
}

// Clone returns a copy whose slice values do not share backing arrays with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Default = cloneValue(d.Default)
	out.Value = cloneValue(d.Value)
	return out
}

// IsSet reports whether Value has been assigned.
func (d Descriptor) IsSet() bool {
	return d.Value != nil
}

// Effective returns Value when set, else Default, else the zero value for the
// descriptor's segment. An unset match-length field is empty.
func (d Descriptor) Effective() any {
	if d.Value != nil {
		return d.Value
	}
	if d.Default != nil {
		return d.Default
	}
	seg := d.Segment()
	if d.MatchLength {
		seg.Repeat = 0
	}
	return format.Zero(seg)
}

// Segment is the descriptor's "{repeat}{code}" layout entry.
func (d Descriptor) Segment() format.Segment {
	code := d.Code
	if code == 0 {
		code = DefaultCode
	}
	return format.Segment{Repeat: d.Repeat, Code: code}
}

// Snapshot returns the effective value with slices copied, so callers can
// modify it without touching the descriptor.
func (d Descriptor) Snapshot() any {
	return cloneValue(d.Effective())
}

func cloneValue(v any) any {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return append([]byte(nil), b...)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}
