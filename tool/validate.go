package tool

// Severity defines diagnostic severity produced while decoding definitions.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes produced by Decode.
const (
	CodeYAMLSyntax     = "YAML_SYNTAX"
	CodeInvalidShape   = "INVALID_SHAPE"
	CodeRequiredField  = "REQUIRED_FIELD"
	CodeDuplicateField = "DUPLICATE_FIELD"
	CodeUnknownField   = "UNKNOWN_FIELD"
	CodeEmptyField     = "EMPTY_FIELD"
)

// Diagnostic is a structured finding about a definition document.
type Diagnostic struct {
	Field    string   `json:"field,omitempty"`
	Code     string   `json:"code,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

// HasErrors returns true when at least one error-severity diagnostic exists.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	return filterSeverity(diags, SeverityError)
}

// Warnings returns only warning-severity diagnostics.
func Warnings(diags []Diagnostic) []Diagnostic {
	return filterSeverity(diags, SeverityWarning)
}

func filterSeverity(diags []Diagnostic, severity Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == severity {
			out = append(out, d)
		}
	}
	return out
}
