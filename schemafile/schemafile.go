// Package schemafile loads dynstruct message declarations from TOML.
//
// A file declares either one message at the top level:
//
//	name = "hello"
//	byte_order = "<"
//
//	[[fields]]
//	name = "payload"
//	code = "s"
//	match_length = true
//
// or several under [[messages]]. Hooks cannot be declared in TOML; callers
// attach OnPack and Validate to the returned schemas before use.
package schemafile

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dynstruct"
	"github.com/danmuck/dynstruct/field"
	"github.com/danmuck/dynstruct/format"
	"github.com/danmuck/dynstruct/internal/logging"
)

const defaultMessageName = "message"

// schema file key mapping.
type fileConfig struct {
	Name      string          `toml:"name"`
	ByteOrder string          `toml:"byte_order"`
	Fields    []fieldConfig   `toml:"fields"`
	Messages  []messageConfig `toml:"messages"`
}

type messageConfig struct {
	Name      string        `toml:"name"`
	ByteOrder string        `toml:"byte_order"`
	Fields    []fieldConfig `toml:"fields"`
}

type fieldConfig struct {
	Name        string `toml:"name"`
	Code        string `toml:"code"`
	Repeat      *int   `toml:"repeat"`
	Default     any    `toml:"default"`
	MatchLength bool   `toml:"match_length"`
}

// Set is the collection of message types declared by one file, in file order.
type Set struct {
	schemas []*dynstruct.Schema
	byName  map[string]*dynstruct.Schema
}

// Schemas returns the declared message types in file order.
func (s *Set) Schemas() []*dynstruct.Schema {
	return append([]*dynstruct.Schema(nil), s.schemas...)
}

// Lookup finds a message type by name.
func (s *Set) Lookup(name string) (*dynstruct.Schema, bool) {
	sc, ok := s.byName[name]
	return sc, ok
}

// Select returns the named message type, or the only one when name is empty.
func (s *Set) Select(name string) (*dynstruct.Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if len(s.schemas) != 1 {
			return nil, fmt.Errorf("schemafile: %d messages declared, name one", len(s.schemas))
		}
		return s.schemas[0], nil
	}
	sc, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("schemafile: unknown message %q", name)
	}
	return sc, nil
}

// Load reads and parses a schema file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile load failed (%s): %w", path, err)
	}
	set, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("schemafile parse failed (%s): %w", path, err)
	}
	logging.Debugf("schemafile.Load path=%s messages=%d", path, len(set.schemas))
	return set, nil
}

// Parse decodes TOML schema declarations. Unknown keys are rejected.
func Parse(data string) (*Set, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	var msgs []messageConfig
	topLevel := meta.IsDefined("name") || meta.IsDefined("byte_order") || meta.IsDefined("fields")
	if topLevel {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			name = defaultMessageName
		}
		msgs = append(msgs, messageConfig{Name: name, ByteOrder: raw.ByteOrder, Fields: raw.Fields})
	}
	msgs = append(msgs, raw.Messages...)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("no messages declared")
	}

	set := &Set{byName: make(map[string]*dynstruct.Schema, len(msgs))}
	for i, mc := range msgs {
		sc, err := buildSchema(mc)
		if err != nil {
			return nil, fmt.Errorf("message[%d] invalid: %w", i, err)
		}
		if _, dup := set.byName[sc.Name]; dup {
			return nil, fmt.Errorf("message[%d] invalid: duplicate name %q", i, sc.Name)
		}
		set.schemas = append(set.schemas, sc)
		set.byName[sc.Name] = sc
	}
	return set, nil
}

func buildSchema(mc messageConfig) (*dynstruct.Schema, error) {
	name := strings.TrimSpace(mc.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	order, err := format.ParseByteOrder(strings.TrimSpace(mc.ByteOrder))
	if err != nil {
		return nil, err
	}
	sc := &dynstruct.Schema{Name: name, ByteOrder: order}
	for i, fc := range mc.Fields {
		d, err := buildField(fc)
		if err != nil {
			return nil, fmt.Errorf("field[%d] invalid: %w", i, err)
		}
		sc.Fields = append(sc.Fields, d)
	}
	if err := sc.Check(); err != nil {
		return nil, err
	}
	return sc, nil
}

func buildField(fc fieldConfig) (field.Descriptor, error) {
	name := strings.TrimSpace(fc.Name)
	if name == "" {
		return field.Descriptor{}, fmt.Errorf("name is required")
	}
	code := field.DefaultCode
	if raw := strings.TrimSpace(fc.Code); raw != "" {
		parsed, err := format.ParseCode(raw)
		if err != nil {
			return field.Descriptor{}, err
		}
		code = parsed
	}
	d := field.New(name, code)
	if fc.Repeat != nil {
		if *fc.Repeat < 1 {
			return field.Descriptor{}, fmt.Errorf("repeat must be positive, got %d", *fc.Repeat)
		}
		d.Repeat = *fc.Repeat
	}
	d.MatchLength = fc.MatchLength
	if fc.Default != nil {
		def, err := coerceDefault(d, fc.Default)
		if err != nil {
			return field.Descriptor{}, fmt.Errorf("default: %w", err)
		}
		d.Default = def
	}
	return d, nil
}

// coerceDefault converts a decoded TOML value (int64, float64, bool, string
// or array) into the canonical Go value for the field's encoding.
func coerceDefault(d field.Descriptor, v any) (any, error) {
	kind := d.Code.Kind()
	if arr, ok := v.([]any); ok && (kind == format.KindBytes || kind == format.KindPascal) {
		b := make([]byte, len(arr))
		for i, e := range arr {
			n, err := format.ToUint64(e)
			if err != nil || n > 0xff {
				return nil, fmt.Errorf("element %d is not a byte", i)
			}
			b[i] = byte(n)
		}
		v = b
	}
	seg := d.Segment()
	if d.MatchLength {
		n, ok, err := format.Units(d.Code, v)
		if err != nil {
			return nil, err
		}
		if ok {
			seg.Repeat = n
		}
	}
	return format.Coerce(seg, v)
}
