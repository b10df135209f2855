package dynstruct

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/dynstruct/field"
	"github.com/danmuck/dynstruct/format"
	"github.com/danmuck/dynstruct/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func helloSchema() *Schema {
	return &Schema{
		Name: "hello",
		Fields: []field.Descriptor{
			field.New("hello", format.Uint8, field.WithDefault(1)),
			field.New("world", format.Uint8),
			field.New("payload", format.Bytes, field.MatchLength()),
		},
	}
}

func fixedSchema() *Schema {
	return &Schema{
		Name: "fixed",
		Fields: []field.Descriptor{
			field.New("kind", format.Uint8),
			field.New("flags", format.Bool),
			field.New("seq", format.Uint32),
			field.New("delta", format.Int16),
			field.New("ratio", format.Float64),
			field.New("half", format.Float16),
			field.New("ids", format.Uint16, field.WithRepeat(3)),
			field.New("pad", format.Pad, field.WithRepeat(2)),
			field.New("tag", format.Bytes, field.WithRepeat(4)),
			field.New("label", format.Pascal, field.WithRepeat(6)),
		},
	}
}

func TestHelloExample(t *testing.T) {
	testlog.Start(t)
	schema := helloSchema()
	m, err := New(schema, With("world", 1), With("payload", []byte("hi")))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if m.Size() != 4 {
		t.Fatalf("expected size 4, got %d", m.Size())
	}
	if m.Layout() != "<BB2s" {
		t.Fatalf("unexpected layout: %q", m.Layout())
	}
	if !bytes.Equal(packed, []byte{1, 1, 'h', 'i'}) {
		t.Fatalf("unexpected packed bytes: %v", packed)
	}

	back, err := FromBuffer(schema, packed, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	want := map[string]any{"hello": uint8(1), "world": uint8(1), "payload": []byte("hi")}
	if diff := cmp.Diff(want, back.Values().Map()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripFixedLayout(t *testing.T) {
	testlog.Start(t)
	schema := fixedSchema()
	m, err := New(schema,
		With("kind", uint8(7)),
		With("flags", true),
		With("seq", uint32(0xdeadbeef)),
		With("delta", int16(-12)),
		With("ratio", 0.25),
		With("half", float32(-2)),
		With("ids", []uint16{10, 20, 30}),
		With("tag", []byte("ABCD")),
		With("label", []byte("go")),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(packed) != m.Size() {
		t.Fatalf("packed %d bytes, size %d", len(packed), m.Size())
	}
	if m.Layout() != "<B?Ihde3H2x4s6p" {
		t.Fatalf("unexpected layout: %q", m.Layout())
	}

	back, err := FromBuffer(schema, packed, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	if diff := cmp.Diff(m.Values(), back.Values()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchLengthSize(t *testing.T) {
	testlog.Start(t)
	schema := helloSchema()
	payload := bytes.Repeat([]byte{0xab}, 300)
	m, err := New(schema, With("payload", payload))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if m.Size() != 2+len(payload) {
		t.Fatalf("expected size %d, got %d", 2+len(payload), m.Size())
	}

	back, err := FromBuffer(schema, packed, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	got, err := back.Bytes("payload")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestMatchLengthEmptyPayload(t *testing.T) {
	testlog.Start(t)
	back, err := FromBuffer(helloSchema(), []byte{3, 4}, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	got, err := back.Bytes("payload")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got %v", got)
	}
	if back.Layout() != "<BB0s" {
		t.Fatalf("unexpected layout: %q", back.Layout())
	}
}

func TestMatchLengthNumericUnits(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name:      "samples",
		ByteOrder: format.BigEndian,
		Fields: []field.Descriptor{
			field.New("count", format.Uint8),
			field.New("samples", format.Int16, field.MatchLength()),
		},
	}
	m, err := New(schema, With("count", uint8(3)), With("samples", []int16{-1, 2, 300}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(packed, []byte{3, 0xff, 0xff, 0x00, 0x02, 0x01, 0x2c}) {
		t.Fatalf("unexpected packed bytes: %v", packed)
	}
	back, err := FromBuffer(schema, packed, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	if diff := cmp.Diff(m.Values(), back.Values()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := FromBuffer(schema, packed[:len(packed)-1], true); !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("expected ErrMalformedBuffer for odd remainder, got %v", err)
	}
}

func TestDefaultFallback(t *testing.T) {
	testlog.Start(t)
	m, err := New(helloSchema())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v, err := m.Get("hello")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected default 1, got %v", v)
	}
	if err := m.Set("hello", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if n, _ := m.Uint("hello"); n != 0 {
		t.Fatalf("expected explicit 0, got %d", n)
	}
	if err := m.Reset("hello"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := m.Uint("hello"); n != 1 {
		t.Fatalf("expected default after reset, got %d", n)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	testlog.Start(t)
	schema := helloSchema()
	if _, err := New(schema, With("nope", 1)); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField from New, got %v", err)
	}
	m, err := New(schema)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := m.Get("nope"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField from Get, got %v", err)
	}
	if err := m.Set("nope", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField from Set, got %v", err)
	}
	if _, err := m.Uint("nope"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField from Uint, got %v", err)
	}
	var derr *Error
	if err := m.Set("nope", 1); !errors.As(err, &derr) || derr.Field != "nope" || derr.Op != "set" {
		t.Fatalf("unexpected error detail: %#v", derr)
	}
}

func TestInstancesDoNotShareState(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "shared",
		Fields: []field.Descriptor{
			field.New("tag", format.Bytes, field.WithRepeat(2), field.WithDefault([]byte("ok"))),
			field.New("body", format.Bytes, field.MatchLength()),
		},
	}
	a, _ := New(schema, With("body", []byte("aaaa")))
	b, _ := New(schema)

	if _, err := a.Pack(); err != nil {
		t.Fatalf("pack a: %v", err)
	}
	if a.Size() != 6 || b.Size() != 3 {
		t.Fatalf("match length leaked across instances: a=%d b=%d", a.Size(), b.Size())
	}
	if schema.Fields[1].Repeat != 1 || schema.Fields[1].Value != nil {
		t.Fatalf("template mutated: %+v", schema.Fields[1])
	}

	tag, _ := a.Get("tag")
	tag.([]byte)[0] = 'X'
	if got, _ := b.Bytes("tag"); string(got) != "ok" {
		t.Fatalf("default shared between instances: %q", got)
	}
	if string(schema.Fields[0].Default.([]byte)) != "ok" {
		t.Fatalf("template default mutated: %q", schema.Fields[0].Default)
	}
}

func TestTwoMatchLengthFieldsIsBadSchema(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "conflict",
		Fields: []field.Descriptor{
			field.New("a", format.Bytes, field.MatchLength()),
			field.New("b", format.Bytes, field.MatchLength()),
		},
	}
	m, err := New(schema)
	if err != nil {
		t.Fatalf("construction must not fail: %v", err)
	}
	if _, err := m.Pack(); !errors.Is(err, ErrBadSchema) {
		t.Fatalf("expected ErrBadSchema from Pack, got %v", err)
	}
	if err := m.Unpack([]byte{1, 2}, true); !errors.Is(err, ErrBadSchema) {
		t.Fatalf("expected ErrBadSchema from Unpack, got %v", err)
	}
	if err := schema.Check(); !errors.Is(err, ErrBadSchema) {
		t.Fatalf("expected ErrBadSchema from Check, got %v", err)
	}
}

func TestBufferSizeMismatch(t *testing.T) {
	testlog.Start(t)
	if _, err := FromBuffer(helloSchema(), []byte{1}, true); !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("expected ErrMalformedBuffer for short static portion, got %v", err)
	}
	schema := &Schema{
		Name: "pair",
		Fields: []field.Descriptor{
			field.New("a", format.Uint16),
			field.New("b", format.Uint16),
		},
	}
	for _, buf := range [][]byte{{1, 2, 3}, {1, 2, 3, 4, 5}} {
		if _, err := FromBuffer(schema, buf, true); !errors.Is(err, ErrMalformedBuffer) {
			t.Fatalf("expected ErrMalformedBuffer for %d bytes, got %v", len(buf), err)
		}
	}
}

func TestValidationGating(t *testing.T) {
	testlog.Start(t)
	schema := helloSchema()
	schema.Validate = func(*Struct) bool { return false }
	buf := []byte{9, 8, 'o', 'k'}

	m, _ := New(schema)
	err := m.Unpack(buf, true)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("validation failure must be distinct from malformed buffer")
	}
	if n, _ := m.Uint("hello"); n != 9 {
		t.Fatalf("expected rejected values to stay populated, got hello=%d", n)
	}

	rejected, err := FromBuffer(schema, buf, true)
	if !errors.Is(err, ErrValidationFailed) || rejected == nil {
		t.Fatalf("expected populated instance with ErrValidationFailed, got %v %v", rejected, err)
	}

	ok, err := FromBuffer(schema, buf, false)
	if err != nil {
		t.Fatalf("unvalidated unpack: %v", err)
	}
	if got, _ := ok.Bytes("payload"); string(got) != "ok" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestOnPackHookApplied(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "toggle",
		Fields: []field.Descriptor{
			field.New("enabled", format.Bool),
			field.New("payload", format.Bytes, field.MatchLength()),
		},
		OnPack: func(s *Struct) error {
			v, err := s.Bool("enabled")
			if err != nil {
				return err
			}
			return s.Set("enabled", !v)
		},
	}
	m, _ := New(schema, With("enabled", false), With("payload", []byte("x")))
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(packed, []byte{1, 'x'}) {
		t.Fatalf("expected flipped flag in packed bytes, got %v", packed)
	}
}

func TestOnPackHookError(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("boom")
	schema := helloSchema()
	schema.OnPack = func(*Struct) error { return boom }
	m, _ := New(schema, With("payload", []byte("x")))
	_, err := m.Pack()
	if !errors.Is(err, ErrHook) || !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
}

func TestPackEncodingErrors(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "enc",
		Fields: []field.Descriptor{
			field.New("small", format.Uint8),
			field.New("tag", format.Bytes, field.WithRepeat(3)),
		},
	}
	m, _ := New(schema, With("small", 300), With("tag", []byte("abc")))
	if _, err := m.Pack(); !errors.Is(err, ErrEncoding) || !errors.Is(err, format.ErrRange) {
		t.Fatalf("expected range encoding error, got %v", err)
	}
	m, _ = New(schema, With("small", 1), With("tag", []byte("ab")))
	if _, err := m.Pack(); !errors.Is(err, ErrEncoding) || !errors.Is(err, format.ErrLength) {
		t.Fatalf("expected length encoding error, got %v", err)
	}
	m, _ = New(helloSchema(), With("payload", 42))
	if _, err := m.Pack(); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected encoding error for non-bytes payload, got %v", err)
	}
}

func TestUnknownCodeIsBadSchema(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name:   "broken",
		Fields: []field.Descriptor{{Name: "x", Code: 'N'}},
	}
	m, _ := New(schema)
	if _, err := m.Pack(); !errors.Is(err, ErrBadSchema) || !errors.Is(err, format.ErrUnknownCode) {
		t.Fatalf("expected bad schema, got %v", err)
	}
	schema = &Schema{Name: "order", ByteOrder: '@'}
	m, _ = New(schema)
	if err := m.Unpack(nil, false); !errors.Is(err, ErrBadSchema) {
		t.Fatalf("expected bad schema for native alignment, got %v", err)
	}
}

func TestCheckAcceptsValidSchema(t *testing.T) {
	testlog.Start(t)
	if err := helloSchema().Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := fixedSchema().Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	dup := &Schema{Name: "dup", Fields: []field.Descriptor{
		field.New("a", format.Uint8),
		field.New("a", format.Uint8),
	}}
	if err := dup.Check(); !errors.Is(err, ErrBadSchema) {
		t.Fatalf("expected duplicate name rejection, got %v", err)
	}
}

func TestStringListsFields(t *testing.T) {
	testlog.Start(t)
	m, _ := New(helloSchema(), With("world", 2), With("payload", []byte("hi")))
	if got := m.String(); got != `<hello hello=1 world=2 payload="hi">` {
		t.Fatalf("unexpected string: %s", got)
	}
}

func TestPackUnsetMatchLengthIsEmpty(t *testing.T) {
	testlog.Start(t)
	m, _ := New(helloSchema())
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(packed, []byte{1, 0}) || m.Layout() != "<BB0s" {
		t.Fatalf("unexpected packed %v layout %q", packed, m.Layout())
	}
}

func TestFieldWithoutCodePacksAsUint8(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "hello",
		Fields: []field.Descriptor{
			field.New("hello", format.Uint8, field.WithDefault(1)),
			{Name: "world"},
			{Name: "payload", Code: format.Bytes, MatchLength: true},
		},
	}
	if err := schema.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	m, err := New(schema, With("payload", []byte("hi")))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	packed, err := m.Pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(packed, []byte{1, 0, 'h', 'i'}) || m.Layout() != "<BB2s" {
		t.Fatalf("unexpected packed %v layout %q", packed, m.Layout())
	}
	back, err := FromBuffer(schema, []byte{1, 7, 'h', 'i'}, true)
	if err != nil {
		t.Fatalf("from buffer: %v", err)
	}
	if n, _ := back.Uint("world"); n != 7 {
		t.Fatalf("expected world=7, got %d", n)
	}
}

func TestStaticSizeExcludesMatchLength(t *testing.T) {
	testlog.Start(t)
	m, _ := New(helloSchema())
	if m.StaticSize() != 2 {
		t.Fatalf("expected static size 2, got %d", m.StaticSize())
	}
	if err := m.Set("payload", []byte("hello")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := m.Pack(); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if m.StaticSize() != 2 || m.Size() != 7 {
		t.Fatalf("unexpected sizes static=%d size=%d", m.StaticSize(), m.Size())
	}
}

func TestGetReturnsCopies(t *testing.T) {
	testlog.Start(t)
	schema := &Schema{
		Name: "copies",
		Fields: []field.Descriptor{
			field.New("s", format.Bytes, field.WithRepeat(2)),
			field.New("samples", format.Int16, field.WithRepeat(2)),
		},
	}
	m, _ := New(schema, With("s", []byte("hi")), With("samples", []int16{1, 2}))
	v, _ := m.Get("s")
	v.([]byte)[0] = 'X'
	n, _ := m.Get("samples")
	n.([]int16)[0] = 9
	for _, nv := range m.Values() {
		if b, ok := nv.Value.([]byte); ok {
			b[1] = 'Y'
		}
	}
	want := Values{{Name: "s", Value: []byte("hi")}, {Name: "samples", Value: []int16{1, 2}}}
	if diff := cmp.Diff(want, m.Values()); diff != "" {
		t.Fatalf("instance values changed through a read (-want +got):\n%s", diff)
	}
}
