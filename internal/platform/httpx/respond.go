// Package httpx provides HTTP response utilities for the JSON API.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/taskhub/taskhub/internal/shared"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 10 << 20

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends a {"message": ...} body.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// DecodeJSON decodes JSON request body into the target struct. Decoding
// failures come back as validation errors on the "body" field.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return shared.NewValidationError("body", "request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return shared.NewValidationError("body", "request body is required")
		case errors.As(err, &maxErr):
			return shared.NewValidationError("body", "request body too large")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return shared.NewValidationError(typeErr.Field, fmt.Sprintf("must be of type %s", typeErr.Type))
		default:
			return shared.NewValidationError("body", "malformed JSON")
		}
	}
	return nil
}
