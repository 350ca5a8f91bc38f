package bed12

import (
	"fmt"
	"strings"
)

// FormatError reports a malformed record: wrong field count, a non-integer
// numeric field, an invalid strand, a block list mismatch, or a missing name
// tag.
type FormatError struct {
	// Path is the file the record was read from, if known.
	Path string
	// Line is the 1-based line number of the record, or 0 if unknown.
	Line int
	// Msg describes the problem.
	Msg string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("bed12: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:", e.Line)
	}
	if e.Path != "" || e.Line > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(e.Msg)
	return b.String()
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}
