package csvimport

import "fmt"

// Row error codes
const (
	CodeRequired    = "REQUIRED"
	CodeInvalidType = "INVALID_TYPE"
	CodeTooLong     = "TOO_LONG"
	CodeOutOfRange  = "OUT_OF_RANGE"
	CodeDuplicate   = "DUPLICATE_IN_FILE"
	CodeInvalid     = "INVALID_VALUE"
)

// RowError describes one rejected field
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors errors and counts the rest
type ErrorCollection struct {
	errors    []RowError
	maxErrors int
	total     int
}

// NewErrorCollection creates a collection; maxErrors <= 0 means 100
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{maxErrors: maxErrors}
}

// Add records an error
func (c *ErrorCollection) Add(err RowError) {
	c.total++
	if len(c.errors) < c.maxErrors {
		c.errors = append(c.errors, err)
	}
}

// Errors returns the retained errors
func (c *ErrorCollection) Errors() []RowError {
	return c.errors
}

// TotalCount includes errors dropped past the limit
func (c *ErrorCollection) TotalCount() int {
	return c.total
}

func (c *ErrorCollection) HasErrors() bool {
	return c.total > 0
}

// IsTruncated reports whether errors were dropped
func (c *ErrorCollection) IsTruncated() bool {
	return c.total > len(c.errors)
}
