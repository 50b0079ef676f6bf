package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Record fields named in normalization errors.
const (
	FieldPeriod  = "period"
	FieldYear    = "year"
	FieldRevenue = "revenue"
	FieldTarget  = "target"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrMalformedRecord = errors.New("malformed record")

	ErrMissingValue   = errors.New("missing value")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrInvalidYear    = errors.New("invalid year")
	ErrInvalidPeriod  = errors.New("invalid period label")
)

// ColumnNotFoundError reports a required column absent from the header.
type ColumnNotFoundError struct {
	Field  string
	Name   string
	Header []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %s column %q not in header [%s]", e.Field, e.Name, strings.Join(e.Header, ", "))
}

func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}

// MalformedRecordError identifies a data row (0-based, header excluded) and
// the field that failed coercion.
type MalformedRecordError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func (e MalformedRecordError) MarshalJSON() ([]byte, error) {
	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return json.Marshal(struct {
		Row    int    `json:"row"`
		Field  string `json:"field"`
		Value  string `json:"value"`
		Reason string `json:"reason"`
	}{e.Row, e.Field, e.Value, reason})
}
