package shared

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present, explicitly null, or of
// the wrong type, so partial updates can tell "absent" from "clear".
type Optional[T any] struct {
	Set     bool
	Null    bool
	Invalid bool
	Value   T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional carrying JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field carries a usable value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null && !o.Invalid
}

// UnmarshalJSON never fails; type mismatches are recorded in Invalid so that
// every field can be reported at once.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		o.Invalid = true
	}
	return nil
}
