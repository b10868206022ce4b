package noderest

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrEntityNotFound indicates an entity could not be loaded
	ErrEntityNotFound = errors.New("entity not found")

	// ErrFileNotFound indicates a file could not be loaded or resolved
	ErrFileNotFound = errors.New("file not found")

	// ErrUnknownField indicates a configured field has no field definition
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownFieldType indicates a stored field type has no FieldKind
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrInvalidFilter indicates a query condition names a field that cannot be filtered on
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrUnknownContentType indicates no formatter is configured for a content type
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrInvalidConfig indicates a formatter configuration is unusable
	ErrInvalidConfig = errors.New("invalid formatter configuration")
)

// NodeError represents an error raised while formatting a node
type NodeError struct {
	NodeID int64
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node operation %s failed for node %d: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// FieldError represents an error related to a single field
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// QueryError represents a store-level query failure
type QueryError struct {
	Field string
	Value string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("query failed: %v", e.Err)
	}
	return fmt.Sprintf("query condition %s = %q failed: %v", e.Field, e.Value, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
