package format

import "errors"

var (
	ErrUnknownCode = errors.New("format: unknown encoding code")
	ErrByteOrder   = errors.New("format: unsupported byte order")
	ErrSyntax      = errors.New("format: invalid layout syntax")
	ErrType        = errors.New("format: value type mismatch")
	ErrRange       = errors.New("format: value out of range")
	ErrLength      = errors.New("format: length mismatch")
	ErrShortBuffer = errors.New("format: short buffer")
)
