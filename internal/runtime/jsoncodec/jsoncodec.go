// Package jsoncodec encodes the wire frames and decodes HTTP bodies. Map keys
// are always written in sorted order, so a point-to-point pattern has exactly
// one string form.
package jsoncodec

import "github.com/bytedance/sonic"

var wire = sonic.Config{
	SortMapKeys:      true,
	CompactMarshaler: true,
	ValidateString:   true,
}.Froze()

func Marshal(v any) ([]byte, error) {
	return wire.Marshal(v)
}

// MarshalString is Marshal for callers that need the text form, such as
// patterns used as subjects and channel names.
func MarshalString(v any) (string, error) {
	return wire.MarshalToString(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return wire.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return wire.Unmarshal(data, v)
}

// Valid reports whether data is a single well-formed JSON value.
func Valid(data []byte) bool {
	return wire.Valid(data)
}
