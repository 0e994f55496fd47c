package runstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScripting  Status = "scripting"
	StatusScripted   Status = "scripted"
	StatusAssembling Status = "assembling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusScripting,
	StatusScripted,
	StatusAssembling,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// Run is one end-to-end generation recorded in the ledger.
type Run struct {
	ID           string
	Title        string
	WorkDir      string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether the run has finished, successfully or not.
func (r Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// TransitionRecord is one engine transition persisted for diagnostics.
type TransitionRecord struct {
	RunID     string
	Seq       int
	FromState string
	Action    string
	ToState   string
	SectionID int
	CreatedAt time.Time
}
