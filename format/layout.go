package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one "{repeat}{code}" entry of a layout.
type Segment struct {
	Repeat int
	Code   Code
}

// Size is the byte width of the segment.
func (s Segment) Size() int {
	return s.Repeat * s.Code.Size()
}

// String omits the repeat when it is exactly 1.
func (s Segment) String() string {
	if s.Repeat == 1 {
		return s.Code.String()
	}
	return strconv.Itoa(s.Repeat) + s.Code.String()
}

// Layout is a byte-order marker followed by segments. No alignment padding
// is ever inserted between segments.
type Layout struct {
	Order    ByteOrder
	Segments []Segment
}

func (l Layout) String() string {
	var b strings.Builder
	b.WriteString(l.Order.Marker())
	for _, seg := range l.Segments {
		b.WriteString(seg.String())
	}
	return b.String()
}

// Size is the total byte length implied by the layout.
func (l Layout) Size() int {
	total := 0
	for _, seg := range l.Segments {
		total += seg.Size()
	}
	return total
}

// Check validates the byte order, every code and every repeat count.
func (l Layout) Check() error {
	if err := l.Order.Check(); err != nil {
		return err
	}
	for i, seg := range l.Segments {
		if err := seg.Code.Check(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if seg.Repeat < 0 {
			return fmt.Errorf("segment %d: %w: negative repeat %d", i, ErrSyntax, seg.Repeat)
		}
	}
	return nil
}

// ParseLayout parses a layout string such as "<BB11s". Whitespace between
// segments is ignored. A missing marker means little-endian.
func ParseLayout(s string) (Layout, error) {
	var l Layout
	rest := s
	if rest != "" {
		switch rest[0] {
		case '<', '>', '!', '=', '@':
			order, err := ParseByteOrder(rest[:1])
			if err != nil {
				return Layout{}, err
			}
			l.Order = order
			rest = rest[1:]
		default:
			l.Order = LittleEndian
		}
	}
	for i := 0; i < len(rest); {
		ch := rest[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}
		start := i
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		repeat := 1
		if i > start {
			n, err := strconv.Atoi(rest[start:i])
			if err != nil {
				return Layout{}, fmt.Errorf("%w: repeat %q: %v", ErrSyntax, rest[start:i], err)
			}
			repeat = n
		}
		if i >= len(rest) {
			return Layout{}, fmt.Errorf("%w: repeat without code in %q", ErrSyntax, s)
		}
		code := Code(rest[i])
		if err := code.Check(); err != nil {
			return Layout{}, err
		}
		l.Segments = append(l.Segments, Segment{Repeat: repeat, Code: code})
		i++
	}
	return l, nil
}

// Calcsize returns the byte length of a layout string.
func Calcsize(s string) (int, error) {
	l, err := ParseLayout(s)
	if err != nil {
		return 0, err
	}
	return l.Size(), nil
}
