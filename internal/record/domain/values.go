package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// Text is a nullable scalar decoded from a JSON string or number. Numbers keep
// their encoded text so identifiers such as sessionId render unchanged.
type Text struct {
	Value string
	Valid bool
}

func NewText(v string) Text { return Text{Value: v, Valid: true} }

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*t = Text{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidValue, data)
		}
		*t = Text{Value: s, Valid: true}
		return nil
	case '{', '[':
		return fmt.Errorf("%w: expected text, got %s", ErrInvalidValue, data)
	default:
		*t = Text{Value: string(data), Valid: true}
		return nil
	}
}

// Ptr returns nil for a null value.
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// Int is a nullable integer decoded from a JSON number or numeric string. Raw
// holds the text as encoded.
type Int struct {
	Value int64
	Raw   string
	Valid bool
}

func NewInt(v int64) Int { return Int{Value: v, Raw: strconv.FormatInt(v, 10), Valid: true} }

func (i *Int) UnmarshalJSON(data []byte) error {
	raw, isNull, err := scalarText(data)
	if err != nil {
		return err
	}
	if isNull {
		*i = Int{}
		return nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*i = Int{Value: v, Raw: raw, Valid: true}
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: expected integer, got %s", ErrInvalidValue, data)
	}
	v := int64(f)
	*i = Int{Value: v, Raw: strconv.FormatInt(v, 10), Valid: true}
	return nil
}

// Float is a nullable float decoded from a JSON number or numeric string.
type Float struct {
	Value float64
	Valid bool
}

func NewFloat(v float64) Float { return Float{Value: v, Valid: true} }

func (f *Float) UnmarshalJSON(data []byte) error {
	raw, isNull, err := scalarText(data)
	if err != nil {
		return err
	}
	if isNull {
		*f = Float{}
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: expected number, got %s", ErrInvalidValue, data)
	}
	*f = Float{Value: v, Valid: true}
	return nil
}

func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// scalarText unwraps a JSON number or string. Empty strings count as null.
func scalarText(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		return "", true, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, fmt.Errorf("%w: %s", ErrInvalidValue, data)
		}
		s = strings.TrimSpace(s)
		return s, s == "", nil
	case '{', '[', 't', 'f':
		return "", false, fmt.Errorf("%w: expected number, got %s", ErrInvalidValue, data)
	default:
		return string(data), false, nil
	}
}
