package irma

import "fmt"

// MissingColumnError reports a required column absent from a table header.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: required column %q not found in header", e.Table, e.Column)
}

// ParseError represents an error while parsing a table row with line context.
type ParseError struct {
	Table   string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parse error at line %d: %s", e.Table, e.Line, e.Message)
}
