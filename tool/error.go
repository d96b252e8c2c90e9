package tool

import (
	"fmt"
	"strings"
)

// ParseError reports why a definition document could not be decoded.
type ParseError struct {
	// Source names the document, usually a file path. It may be empty.
	Source      string       `json:"source,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("tool: parse definition")
	if e.Source != "" {
		b.WriteString(" ")
		b.WriteString(e.Source)
	}

	errs := Errors(e.Diagnostics)
	if len(errs) == 0 {
		return b.String()
	}
	for i, d := range errs {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(FormatDiagnostic(d))
	}
	return b.String()
}

// FormatDiagnostic renders a diagnostic as "line N: field: message".
func FormatDiagnostic(d Diagnostic) string {
	var prefix string
	if d.Line > 0 {
		prefix = fmt.Sprintf("line %d: ", d.Line)
	}
	if d.Field != "" {
		prefix += d.Field + ": "
	}
	return prefix + d.Message
}
