// Package format owns the encoding vocabulary for fixed-layout messages.
//
// Ownership boundary:
// - single-character encoding codes and their unit sizes
// - byte-order markers
// - layout strings (parse, render, size)
// - primitive encode/decode of one layout segment
package format
