package models

import (
	"fmt"
	"strings"
)

// RunMode selects which driver states are active
type RunMode int

const (
	ConvergeIssues RunMode = iota + 1
	EstablishLinksOnly
)

// String returns the command name of the mode
func (m RunMode) String() string {
	switch m {
	case ConvergeIssues:
		return "converge_issues"
	case EstablishLinksOnly:
		return "establish_links_only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseRunMode parses a command name, case-insensitively
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "converge_issues":
		return ConvergeIssues, nil
	case "establish_links_only":
		return EstablishLinksOnly, nil
	default:
		return 0, fmt.Errorf("unknown command %q (expected converge_issues or establish_links_only)", s)
	}
}

// MigrationRange is an inclusive range of issue numbers
type MigrationRange struct {
	Start int
	End   int
}

// Validate checks the range bounds
func (r MigrationRange) Validate() error {
	if r.Start < 1 {
		return fmt.Errorf("start number must be positive, got %d", r.Start)
	}
	if r.End < r.Start {
		return fmt.Errorf("finish number %d is before start number %d", r.End, r.Start)
	}
	return nil
}

// Len returns how many numbers the range covers
func (r MigrationRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// UpsertResult tells whether an upsert created or overwrote the issue
type UpsertResult int

const (
	Created UpsertResult = iota + 1
	Overwritten
)

func (r UpsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Overwritten:
		return "overwritten"
	default:
		return "unknown"
	}
}

// LinkOutcome is the result of establishing one link
type LinkOutcome int

const (
	LinkCreated LinkOutcome = iota + 1
	LinkAlreadyExists
	LinkTargetMissing
	LinkPlanned
)

func (o LinkOutcome) String() string {
	switch o {
	case LinkCreated:
		return "created"
	case LinkAlreadyExists:
		return "already exists"
	case LinkTargetMissing:
		return "target missing"
	case LinkPlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// LinkResult describes one relationship handled by the link resolver
type LinkResult struct {
	From         string
	To           string
	SourceKind   string
	Relationship string
	Outcome      LinkOutcome
}
