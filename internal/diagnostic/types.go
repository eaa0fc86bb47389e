package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"graph-serializer/internal/common"
)

// Diagnostics collects the findings of one validation run.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// Diagnostic is a single finding about a document key.
type Diagnostic struct {
	Severity Severity
	// Code identifies the kind of finding, e.g. "invalid_value".
	Code    string
	Message string
	// Key is the document key the finding is about, e.g. "naming.strategy".
	Key string
	// Suggestion is a likely intended value, if one is close enough.
	Suggestion string
}

type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// AddError records an error and returns it for further decoration.
func (d *Diagnostics) AddError(code, key, format string, args ...any) *Diagnostic {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Key:      key,
	})

	return &d.Errors[len(d.Errors)-1]
}

func (d *Diagnostics) AddWarning(code, key, format string, args ...any) *Diagnostic {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Key:      key,
	})

	return &d.Warnings[len(d.Warnings)-1]
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Err joins all errors into one, or returns nil.
func (d *Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

func (d Diagnostic) String() string {
	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if d.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", d.Suggestion)
	}

	if d.Key != "" {
		return d.Key + ": " + msg
	}

	return msg
}
