// Package opt provides an optional value that tells "not provided" apart from
// "explicitly null".
package opt

import (
	"bytes"
	"encoding/json"
)

type state uint8

const (
	omitted state = iota
	null
	present
)

// Field holds a value of T in one of three states: omitted (the zero Field),
// null, or set.
type Field[T any] struct {
	value T
	state state
}

func Omit[T any]() Field[T] { return Field[T]{} }

func Null[T any]() Field[T] { return Field[T]{state: null} }

func Of[T any](v T) Field[T] { return Field[T]{value: v, state: present} }

// FromPtr maps nil to Null and anything else to Of.
func FromPtr[T any](p *T) Field[T] {
	if p == nil {
		return Null[T]()
	}
	return Of(*p)
}

// Provided reports whether the caller supplied the field, including as null.
func (f Field[T]) Provided() bool { return f.state != omitted }

func (f Field[T]) IsNull() bool { return f.state == null }

// Get returns the value and true only when the field holds a value.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == present
}

// Ptr returns nil for omitted and null fields.
func (f Field[T]) Ptr() *T {
	if f.state != present {
		return nil
	}
	v := f.value
	return &v
}

// Or returns the value, or def when the field holds none.
func (f Field[T]) Or(def T) T {
	if f.state != present {
		return def
	}
	return f.value
}

// UnmarshalJSON is only called for keys present in the document, so an
// absent key leaves the Field omitted.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
