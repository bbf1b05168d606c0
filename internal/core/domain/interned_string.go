package domain

import "unique"

var zeroHandle unique.Handle[string]

// InternedString wraps a unique.Handle[string] so that repeated names (jobs,
// matrix parameters, needs edges) share storage and compare by handle. The
// zero value behaves like an empty string.
type InternedString struct {
	handle unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{handle: unique.Make(s)}
}

// IsZero reports whether the value was never interned.
func (is InternedString) IsZero() bool {
	return is.handle == zeroHandle
}

// String returns the interned string, or "" for the zero value.
func (is InternedString) String() string {
	if is.IsZero() {
		return ""
	}
	return is.handle.Value()
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	*is = NewInternedString(string(text))
	return nil
}
