// Package models defines the domain models for the workflow tracker
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Department is the business unit that owns a workflow.
type Department string

const (
	DepartmentAccounting  Department = "Accounting"
	DepartmentOperations  Department = "Operations"
	DepartmentEngineering Department = "Engineering"
	DepartmentHR          Department = "HR"
	DepartmentIT          Department = "IT"
	DepartmentLegal       Department = "Legal"
	DepartmentSupplyChain Department = "Supply Chain"
)

// AllDepartments lists departments in display order.
var AllDepartments = []Department{
	DepartmentAccounting,
	DepartmentOperations,
	DepartmentEngineering,
	DepartmentHR,
	DepartmentIT,
	DepartmentLegal,
	DepartmentSupplyChain,
}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	for _, known := range AllDepartments {
		if d == known {
			return true
		}
	}
	return false
}

// Frequency is how often a workflow is performed.
type Frequency string

const (
	FrequencyDaily     Frequency = "Daily"
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
)

var AllFrequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly}

func (f Frequency) Valid() bool {
	for _, known := range AllFrequencies {
		if f == known {
			return true
		}
	}
	return false
}

// Priority ranks how urgently a workflow should be automated.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, known := range AllPriorities {
		if p == known {
			return true
		}
	}
	return false
}

// Rank orders priorities High(3) > Medium(2) > Low(1). Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Status tracks where a proposal is in the review pipeline.
type Status string

const (
	StatusPendingReview Status = "Pending Review"
	StatusInProgress    Status = "In Progress"
	StatusAutomated     Status = "Automated"
	StatusRejected      Status = "Rejected"
)

var AllStatuses = []Status{StatusPendingReview, StatusInProgress, StatusAutomated, StatusRejected}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Workflow is a single automation proposal.
type Workflow struct {
	ID                           string     `json:"id"`
	Department                   Department `json:"department"`
	ProcessName                  string     `json:"processName"`
	Description                  string     `json:"description"`
	CurrentTime                  int        `json:"currentTime"`                  // minutes per occurrence today
	EstimatedTimeAfterAutomation int        `json:"estimatedTimeAfterAutomation"` // minutes per occurrence once automated
	Frequency                    Frequency  `json:"frequency"`
	Programs                     Programs   `json:"programs"`
	SubmittedBy                  string     `json:"submittedBy"`
	Email                        string     `json:"email,omitempty"`
	Priority                     Priority   `json:"priority"`
	Status                       Status     `json:"status"`
	Notes                        string     `json:"notes"`
	CreatedAt                    time.Time  `json:"createdAt"`
}

// Date returns the creation day formatted as YYYY-MM-DD.
func (w *Workflow) Date() string {
	if w.CreatedAt.IsZero() {
		return ""
	}
	return w.CreatedAt.UTC().Format(time.DateOnly)
}

// MarshalJSON adds the derived date field expected by the dashboard.
func (w Workflow) MarshalJSON() ([]byte, error) {
	type alias Workflow
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(w), Date: w.Date()})
}

// Programs is the ordered list of tools a workflow touches. It decodes from
// either a JSON array or a comma separated string.
type Programs []string

func (p *Programs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = normalizePrograms(list)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ParsePrograms(raw)
	return nil
}

// ParsePrograms splits a comma separated list, trimming whitespace and
// dropping empty entries.
func ParsePrograms(raw string) Programs {
	return normalizePrograms(strings.Split(raw, ","))
}

// Normalize returns p with entries trimmed and empty entries removed.
func (p Programs) Normalize() Programs {
	return normalizePrograms(p)
}

func normalizePrograms(in []string) Programs {
	out := make(Programs, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
