package repository

import "time"

// Outcome of a journaled mutation attempt.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomeRejected Outcome = "rejected" // failed form validation, never sent
)

// Activity represents an activity row.
type Activity struct {
	ID        string
	At        time.Time
	Principal string
	Method    string
	Target    string
	Outcome   Outcome
	Message   string
}
