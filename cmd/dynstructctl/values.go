package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/dynstruct/field"
	"github.com/danmuck/dynstruct/format"
)

// assignments collects repeated -set flags.
type assignments []string

func (a *assignments) String() string {
	return strings.Join(*a, ",")
}

func (a *assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func parseAssignment(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid assignment %q (want name=value)", raw)
	}
	return name, value, nil
}

// parseValue turns command-line text into a value for f. Byte codes take raw
// text or "hex:" prefixed hex. Numeric codes with a repeat other than 1 take
// a comma-separated list.
func parseValue(f field.Descriptor, raw string) (any, error) {
	kind := f.Code.Kind()
	switch kind {
	case format.KindPad:
		return nil, fmt.Errorf("pad fields carry no value")
	case format.KindBytes, format.KindPascal:
		if h, ok := strings.CutPrefix(raw, "hex:"); ok {
			return hex.DecodeString(h)
		}
		return []byte(raw), nil
	}

	if f.Repeat == 1 && !f.MatchLength {
		return parseScalar(kind, strings.TrimSpace(raw))
	}
	parts := strings.Split(raw, ",")
	if strings.TrimSpace(raw) == "" {
		parts = nil
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		v, err := parseScalar(kind, strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseScalar(kind format.Kind, raw string) (any, error) {
	switch kind {
	case format.KindBool:
		return strconv.ParseBool(raw)
	case format.KindInt:
		return strconv.ParseInt(raw, 0, 64)
	case format.KindUint:
		return strconv.ParseUint(raw, 0, 64)
	case format.KindFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

func formatValue(v any) string {
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("%q (hex:%s)", b, hex.EncodeToString(b))
	}
	return fmt.Sprintf("%v", v)
}
