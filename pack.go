package dynstruct

import (
	"fmt"

	"github.com/danmuck/dynstruct/format"
	"github.com/danmuck/dynstruct/internal/logging"
)

// Pack resolves the match-length field from its current value, runs the
// schema's OnPack hook, then encodes every field in declaration order.
func (s *Struct) Pack() ([]byte, error) {
	if err := s.checkLayout("pack"); err != nil {
		return nil, err
	}
	if err := s.resolvePackLength(); err != nil {
		return nil, err
	}
	if s.schema.OnPack != nil {
		if err := s.schema.OnPack(s); err != nil {
			return nil, &Error{Schema: s.schema.Name, Op: "on pack", Kind: ErrHook, Err: err}
		}
	}

	buf := make([]byte, 0, s.Size())
	for i := range s.fields {
		f := &s.fields[i]
		var err error
		buf, err = f.Segment().Append(buf, s.schema.ByteOrder, f.Effective())
		if err != nil {
			logging.Debugf("dynstruct.Pack failed schema=%s field=%s err=%v", s.schema.Name, f.Name, err)
			return nil, s.errorf("pack", f.Name, ErrEncoding, err)
		}
	}
	if logging.DebugEnabled() {
		logging.Debugf("dynstruct.Pack ok schema=%s layout=%s size=%d", s.schema.Name, s.Layout(), len(buf))
	}
	return buf, nil
}

// Unpack decodes buf into the instance. The match-length field, if any, takes
// whatever buf holds beyond the static fields.
//
// When validate is true and the schema's Validate hook rejects the result,
// Unpack returns ErrValidationFailed and the decoded values stay on the
// instance; there is no rollback. Other failures may also leave the
// match-length field resized.
func (s *Struct) Unpack(buf []byte, validate bool) error {
	if err := s.checkLayout("unpack"); err != nil {
		return err
	}
	if err := s.resolveUnpackLength(len(buf)); err != nil {
		return err
	}
	if size := s.Size(); len(buf) != size {
		return s.errorf("unpack", "", ErrMalformedBuffer,
			fmt.Errorf("buffer is %d bytes, layout %s needs %d", len(buf), s.Layout(), size))
	}

	offset := 0
	for i := range s.fields {
		f := &s.fields[i]
		seg := f.Segment()
		v, err := seg.Decode(buf[offset:], s.schema.ByteOrder)
		if err != nil {
			return s.errorf("unpack", f.Name, ErrMalformedBuffer, err)
		}
		offset += seg.Size()
		if seg.Code.Kind() == format.KindPad {
			continue
		}
		f.Value = v
	}
	if logging.DebugEnabled() {
		logging.Debugf("dynstruct.Unpack ok schema=%s layout=%s size=%d", s.schema.Name, s.Layout(), len(buf))
	}

	if validate && s.schema.Validate != nil && !s.schema.Validate(s) {
		logging.Warnf("dynstruct.Unpack validation failed schema=%s", s.schema.Name)
		return s.errorf("validate", "", ErrValidationFailed, nil)
	}
	return nil
}

// matchIndex returns the index of the match-length field or -1.
func (s *Struct) matchIndex(op string) (int, error) {
	idx := -1
	for i, f := range s.fields {
		if !f.MatchLength {
			continue
		}
		if idx >= 0 {
			logging.Errf("dynstruct: schema=%s declares more than one match length field", s.schema.Name)
			return -1, s.errorf(op, f.Name, ErrBadSchema,
				fmt.Errorf("match length already set on %q", s.fields[idx].Name))
		}
		idx = i
	}
	return idx, nil
}

func (s *Struct) resolvePackLength() error {
	idx, err := s.matchIndex("pack")
	if err != nil || idx < 0 {
		return err
	}
	f := &s.fields[idx]
	n, ok, err := format.Units(f.Code, f.Effective())
	if err != nil {
		return s.errorf("pack", f.Name, ErrEncoding, err)
	}
	if ok {
		f.Repeat = n
	}
	return nil
}

func (s *Struct) resolveUnpackLength(bufLen int) error {
	idx, err := s.matchIndex("unpack")
	if err != nil || idx < 0 {
		return err
	}
	f := &s.fields[idx]
	unit := f.Code.Size()
	static := s.StaticSize()
	remaining := bufLen - static
	if remaining < 0 {
		return s.errorf("unpack", f.Name, ErrMalformedBuffer,
			fmt.Errorf("buffer is %d bytes, static fields need %d", bufLen, static))
	}
	if remaining%unit != 0 {
		return s.errorf("unpack", f.Name, ErrMalformedBuffer,
			fmt.Errorf("%d remaining bytes are not a multiple of %d", remaining, unit))
	}
	f.Repeat = remaining / unit
	return nil
}

func (s *Struct) checkLayout(op string) error {
	if err := s.schema.ByteOrder.Check(); err != nil {
		return s.errorf(op, "", ErrBadSchema, err)
	}
	for _, f := range s.fields {
		if err := f.Code.Check(); err != nil {
			return s.errorf(op, f.Name, ErrBadSchema, err)
		}
		if f.Repeat < 0 {
			return s.errorf(op, f.Name, ErrBadSchema, fmt.Errorf("negative repeat %d", f.Repeat))
		}
	}
	return nil
}
