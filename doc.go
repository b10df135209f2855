// Package dynstruct declares fixed-layout binary messages and packs and
// unpacks them without per-message serialization code.
//
// A message type is a Schema: an ordered list of field descriptors, a
// byte-order marker and two optional hooks. Each Struct built from a Schema
// clones the descriptors, so instances never share value slots with each
// other or with the template.
//
//	var Hello = &dynstruct.Schema{
//		Name: "hello",
//		Fields: []field.Descriptor{
//			field.New("hello", format.Uint8, field.WithDefault(1)),
//			field.New("world", format.Uint8),
//			field.New("payload", format.Bytes, field.MatchLength()),
//		},
//	}
//
//	m, _ := dynstruct.New(Hello, dynstruct.With("world", 1), dynstruct.With("payload", []byte("hi")))
//	buf, _ := m.Pack() // 01 01 68 69
//	back, _ := dynstruct.FromBuffer(Hello, buf, true)
//
// Layout and Size are recomputed on every call because packing and unpacking
// resize the match-length field in place.
package dynstruct
