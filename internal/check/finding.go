// Package check implements the consistency checker: structural invariants on
// a single document, a field-by-field diff of derived metadata against a
// fresh recomputation, corpus-wide tree and reference checks, and JSON
// schema validation of raw wire documents. Data problems are reported as
// findings, never raised as errors; only programmer-error preconditions
// (checking a stub's metadata) fail.
package check

import (
	"fmt"

	"notarium/internal/repair"
)

// Severity ranks a finding.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Finding reports one detected inconsistency. Receipt, when non-nil, is a
// mechanical fix the repair engine can apply.
type Finding struct {
	Severity  Severity
	Message   string
	SubjectID string
	Receipt   *repair.Receipt
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.SubjectID, f.Message)
}

func finding(sev Severity, id, format string, args ...any) Finding {
	return Finding{Severity: sev, SubjectID: id, Message: fmt.Sprintf(format, args...)}
}

func repairable(sev Severity, id string, r repair.Receipt, format string, args ...any) Finding {
	f := finding(sev, id, format, args...)
	f.Receipt = &r
	return f
}
