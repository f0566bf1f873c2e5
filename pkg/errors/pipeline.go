package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DataNotFoundError is returned when the input dataset does not exist.
type DataNotFoundError struct {
	Path string
	Err  error
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("bikecast: data file not found at %s: %v", e.Path, e.Err)
}

func (e *DataNotFoundError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *DataNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("type", "DataNotFoundError")
}

// NewDataNotFoundError creates a DataNotFoundError with a stack trace.
func NewDataNotFoundError(path string, cause error) error {
	return errors.WithStack(&DataNotFoundError{Path: path, Err: cause})
}

// SchemaError is returned when a required column cannot be located,
// even after header repair.
type SchemaError struct {
	Column  string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("bikecast: column %q not found even after cleaning (columns: %v)", e.Column, e.Columns)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Strs("columns", e.Columns).
		Str("type", "SchemaError")
}

// NewSchemaError creates a SchemaError with a stack trace.
func NewSchemaError(column string, columns []string) error {
	return errors.WithStack(&SchemaError{Column: column, Columns: columns})
}

// ParseError is returned when a cell does not match the expected format.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Layout string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bikecast: cannot parse %s %q at row %d with layout %q: %v", e.Column, e.Value, e.Row, e.Layout, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *ParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Int("row", e.Row).
		Str("value", e.Value).
		Str("layout", e.Layout).
		Str("type", "ParseError")
}

// NewParseError creates a ParseError with a stack trace.
func NewParseError(column string, row int, value, layout string, cause error) error {
	return errors.WithStack(&ParseError{Column: column, Row: row, Value: value, Layout: layout, Err: cause})
}

// TargetNotFoundError is returned when neither the exact target name nor a
// column sharing its prefix exists.
type TargetNotFoundError struct {
	Target string
	Prefix string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("bikecast: target column %q not found (no column starts with %q)", e.Target, e.Prefix)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *TargetNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("target", e.Target).
		Str("prefix", e.Prefix).
		Str("type", "TargetNotFoundError")
}

// NewTargetNotFoundError creates a TargetNotFoundError with a stack trace.
func NewTargetNotFoundError(target, prefix string) error {
	return errors.WithStack(&TargetNotFoundError{Target: target, Prefix: prefix})
}

// DuplicateColumnError is returned when header cleaning maps two source
// columns onto the same name.
type DuplicateColumnError struct {
	Column  string
	Sources []string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("bikecast: columns %q all clean to %q", e.Sources, e.Column)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *DuplicateColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Strs("sources", e.Sources).
		Str("type", "DuplicateColumnError")
}

// NewDuplicateColumnError creates a DuplicateColumnError with a stack trace.
func NewDuplicateColumnError(column string, sources []string) error {
	return errors.WithStack(&DuplicateColumnError{Column: column, Sources: sources})
}

// UnsupportedModelError is returned when the requested model family is unknown.
type UnsupportedModelError struct {
	Family    string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("bikecast: model type %q not supported (supported: %v)", e.Family, e.Supported)
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *UnsupportedModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("family", e.Family).
		Strs("supported", e.Supported).
		Str("type", "UnsupportedModelError")
}

// NewUnsupportedModelError creates an UnsupportedModelError with a stack trace.
func NewUnsupportedModelError(family string, supported []string) error {
	return errors.WithStack(&UnsupportedModelError{Family: family, Supported: supported})
}

// IOError wraps a failure to read or write a pipeline artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bikecast: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured fields to a zerolog event.
func (e *IOError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Str("type", "IOError")
}

// NewIOError creates an IOError with a stack trace.
func NewIOError(op, path string, cause error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: cause})
}
