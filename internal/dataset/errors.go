package dataset

import (
	"fmt"
	"strings"
)

// MissingFileError reports which expected input files are absent.
type MissingFileError struct {
	Files []string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing input files: %s", strings.Join(e.Files, ", "))
}

// MalformedInputError reports a file that could not be parsed into the
// expected columns, typically because of a wrong delimiter.
type MalformedInputError struct {
	File    string
	Missing []string
	Err     error
}

func (e *MalformedInputError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("malformed input %s: missing columns %s (check the delimiter)",
			e.File, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("malformed input %s: %v", e.File, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// IntegrityError lists every identity-column violation found by Validate.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return "data integrity check failed: " + strings.Join(e.Problems, "; ")
}
