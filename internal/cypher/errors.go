package cypher

import "fmt"

// ParseError is returned for any lexing or parsing failure, surfaced with a
// text position per SPEC_FULL.md §2.2.
type ParseError struct {
	Message  string
	Location Location
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Location.Offset, e.Message)
}
