package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedRecord = errors.New("malformed_record")
	ErrMissingField    = errors.New("missing_field")
	ErrInvalidValue    = errors.New("invalid_value")
)

// RecordError locates a parse or validation failure inside a source file.
type RecordError struct {
	Key   string
	Line  int
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	var b strings.Builder
	if e.Key != "" {
		b.WriteString(e.Key)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RecordError) Unwrap() error { return e.Err }

func missing(field string) error {
	return &RecordError{Field: field, Err: ErrMissingField}
}
