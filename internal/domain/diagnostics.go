package domain

import "time"

// DiagnosticStatus indicates whether a single startup check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is one startup check result with an optional hint.
type DiagnosticItem struct {
	ID      string
	Name    string
	Status  DiagnosticStatus
	Message string
	Hint    string
}

// DiagnosticReport aggregates startup checks logged before serving.
type DiagnosticReport struct {
	GeneratedAt time.Time
	HasFailures bool
	Items       []DiagnosticItem
}
