// Package diagnostic turns describe, synthesis and configuration failures
// into user-facing diagnostics.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tsgonest/typeguard/internal/analyzer"
	"github.com/tsgonest/typeguard/internal/guard"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Category classifies diagnostics for filtering.
type Category string

const (
	CategoryTypeUnsupported    Category = "type-unsupported"
	CategoryElementMissing     Category = "element-missing"
	CategoryAccessorUnresolved Category = "accessor-unresolved"
	CategorySchemaInvalid      Category = "schema-invalid"
	CategoryConfigInvalid      Category = "config-invalid"
	CategoryTypeSkipped        Category = "type-skipped"
)

// CategoryOf maps an error to the category it is reported under. Errors that
// are not schema errors are treated as invalid schema input.
func CategoryOf(err error) Category {
	switch {
	case errors.Is(err, analyzer.ErrUnsupportedSchemaShape):
		return CategoryTypeUnsupported
	case errors.Is(err, analyzer.ErrMissingElementType):
		return CategoryElementMissing
	case errors.Is(err, guard.ErrUnresolvedAccessor):
		return CategoryAccessorUnresolved
	}
	return CategorySchemaInvalid
}

// Diagnostic represents a structured diagnostic message.
type Diagnostic struct {
	Severity Severity
	Category Category
	File     string // source file path
	Line     int    // 1-based line number (0 = unknown)
	Column   int    // 1-based column number (0 = unknown)
	Message  string
	Hint     string // optional suggestion for fixing the issue
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var sb strings.Builder

	// File location
	if d.File != "" {
		sb.WriteString(d.File)
		if d.Line > 0 {
			sb.WriteString(fmt.Sprintf(":%d", d.Line))
			if d.Column > 0 {
				sb.WriteString(fmt.Sprintf(":%d", d.Column))
			}
		}
		sb.WriteString(" - ")
	}

	// Severity
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")

	// Category
	if d.Category != "" {
		sb.WriteString("[")
		sb.WriteString(string(d.Category))
		sb.WriteString("] ")
	}

	// Message
	sb.WriteString(d.Message)

	// Hint
	if d.Hint != "" {
		sb.WriteString("\n  hint: ")
		sb.WriteString(d.Hint)
	}

	return sb.String()
}

// FromError builds an error diagnostic for err, reported against file. Hints
// attached anywhere in the error chain are joined into the diagnostic's hint.
func FromError(err error, file string) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Category: CategoryOf(err),
		File:     file,
		Message:  err.Error(),
		Hint:     strings.ReplaceAll(errors.FlattenHints(err), "\n--\n", "; "),
	}
}

// Collector collects diagnostics during analysis.
type Collector struct {
	diagnostics []Diagnostic
	strict      bool // if true, warnings become errors
	quiet       bool // if true, suppress warnings
}

// NewCollector creates a new diagnostic collector.
func NewCollector(strict, quiet bool) *Collector {
	return &Collector{
		strict: strict,
		quiet:  quiet,
	}
}

// WarnWithHint adds a warning with an optional suggestion.
func (c *Collector) WarnWithHint(category Category, file string, line int, message, hint string) {
	if c == nil || c.quiet {
		return
	}
	sev := SeverityWarning
	if c.strict {
		sev = SeverityError
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: sev,
		Category: category,
		File:     file,
		Line:     line,
		Message:  message,
		Hint:     hint,
	})
}

// Error adds an error diagnostic.
func (c *Collector) Error(category Category, file string, line int, message string) {
	if c == nil {
		return
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: SeverityError,
		Category: category,
		File:     file,
		Line:     line,
		Message:  message,
	})
}

// Report adds err as an error diagnostic. With skip set the failing type is
// left out of the output instead: it is reported under CategoryTypeSkipped as
// a warning, or as an error in strict mode, which wins over quiet.
func (c *Collector) Report(err error, file string, skip bool) {
	if c == nil || err == nil {
		return
	}
	d := FromError(err, file)
	if skip {
		d.Category = CategoryTypeSkipped
		switch {
		case c.strict:
		case c.quiet:
			return
		default:
			d.Severity = SeverityWarning
		}
	}
	c.diagnostics = append(c.diagnostics, d)
}

// Diagnostics returns all collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diagnostics
}

// HasErrors returns true if any error-level diagnostics exist.
func (c *Collector) HasErrors() bool {
	if c == nil {
		return false
	}
	for _, d := range c.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error diagnostics.
func (c *Collector) ErrorCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, d := range c.diagnostics {
		if d.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning diagnostics.
func (c *Collector) WarningCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, d := range c.diagnostics {
		if d.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// FormatAll formats all diagnostics as a multi-line string.
func (c *Collector) FormatAll() string {
	if c == nil || len(c.diagnostics) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range c.diagnostics {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Summary returns a summary line like "2 warning(s), 1 error(s)".
func (c *Collector) Summary() string {
	if c == nil {
		return ""
	}
	warnings := c.WarningCount()
	errors := c.ErrorCount()

	parts := []string{}
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
