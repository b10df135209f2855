package dynstruct

import (
	"errors"
	"fmt"

	"github.com/danmuck/dynstruct/field"
	"github.com/danmuck/dynstruct/format"
)

// Schema declares a message type. A Schema and its Fields are shared by all
// instances and must not be modified once instances exist.
type Schema struct {
	Name string
	// ByteOrder defaults to little-endian.
	ByteOrder format.ByteOrder
	Fields    []field.Descriptor
	// OnPack runs after match-length resolution and before serialization. It
	// may change field values. A returned error aborts Pack.
	OnPack func(*Struct) error
	// Validate runs after a validating Unpack. Returning false fails the
	// unpack with ErrValidationFailed.
	Validate func(*Struct) bool
}

// Check validates the declaration eagerly: byte order, codes, repeat counts,
// unique names and at most one match-length field. Pack and Unpack do not
// require it; they only enforce the match-length rule when resolving lengths.
func (s *Schema) Check() error {
	if err := s.ByteOrder.Check(); err != nil {
		return &Error{Schema: s.Name, Op: "check", Kind: ErrBadSchema, Err: err}
	}
	seen := make(map[string]struct{}, len(s.Fields))
	match := ""
	for _, f := range s.Fields {
		if f.Name == "" {
			return &Error{Schema: s.Name, Op: "check", Kind: ErrBadSchema, Err: fmt.Errorf("field without name")}
		}
		if _, dup := seen[f.Name]; dup {
			return &Error{Schema: s.Name, Field: f.Name, Op: "check", Kind: ErrBadSchema, Err: fmt.Errorf("duplicate field")}
		}
		seen[f.Name] = struct{}{}
		if err := f.Segment().Code.Check(); err != nil {
			return &Error{Schema: s.Name, Field: f.Name, Op: "check", Kind: ErrBadSchema, Err: err}
		}
		if f.Repeat < 0 {
			return &Error{Schema: s.Name, Field: f.Name, Op: "check", Kind: ErrBadSchema, Err: fmt.Errorf("negative repeat %d", f.Repeat)}
		}
		if f.MatchLength {
			if match != "" {
				return &Error{Schema: s.Name, Field: f.Name, Op: "check", Kind: ErrBadSchema, Err: fmt.Errorf("match length already set on %q", match)}
			}
			match = f.Name
		}
	}
	return nil
}

// Init seeds one field value at construction.
type Init struct {
	Name  string
	Value any
}

func With(name string, value any) Init {
	return Init{Name: name, Value: value}
}

// New clones the schema's field templates into a fresh instance and applies
// init in order. An unknown name fails with ErrUnknownField.
func New(schema *Schema, init ...Init) (*Struct, error) {
	s := &Struct{
		schema: schema,
		fields: make([]field.Descriptor, len(schema.Fields)),
		index:  make(map[string]int, len(schema.Fields)),
	}
	for i, tmpl := range schema.Fields {
		f := tmpl.Clone()
		if f.Repeat == 0 {
			f.Repeat = 1
		}
		f.Code = f.Segment().Code
		s.fields[i] = f
		if _, dup := s.index[f.Name]; !dup {
			s.index[f.Name] = i
		}
	}
	for _, in := range init {
		if err := s.Set(in.Name, in.Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromBuffer builds an instance with default values and unpacks buf into it.
// When validation fails the populated instance is returned with the error.
func FromBuffer(schema *Schema, buf []byte, validate bool) (*Struct, error) {
	s, err := New(schema)
	if err != nil {
		return nil, err
	}
	if err := s.Unpack(buf, validate); err != nil {
		if errors.Is(err, ErrValidationFailed) {
			return s, err
		}
		return nil, err
	}
	return s, nil
}
