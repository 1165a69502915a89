package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
)

// FilterAll disables a categorical filter.
const FilterAll = "All"

// SortKey selects the ordering applied by FilterAndSort.
type SortKey string

const (
	SortDateDesc  SortKey = "date-desc"
	SortDateAsc   SortKey = "date-asc"
	SortTimeSaved SortKey = "time-saved"
	SortPriority  SortKey = "priority"
)

// ParseSortKey validates a sort key. An empty string selects SortDateDesc.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortTimeSaved, SortPriority:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// Criteria is the dashboard's list query. Empty categorical fields behave
// like FilterAll.
type Criteria struct {
	Search     string
	Department string
	Status     string
	Priority   string
	Sort       SortKey
}

// Matches reports whether w passes every predicate in c.
func (c Criteria) Matches(w *models.Workflow) bool {
	if c.Search != "" {
		term := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(w.ProcessName), term) &&
			!strings.Contains(strings.ToLower(w.Description), term) {
			return false
		}
	}
	return matchCategory(c.Department, string(w.Department)) &&
		matchCategory(c.Status, string(w.Status)) &&
		matchCategory(c.Priority, string(w.Priority))
}

func matchCategory(filter, value string) bool {
	return filter == "" || filter == FilterAll || filter == value
}

// FilterAndSort returns the records matching c in the order c.Sort selects.
// Ties keep their input order. The input slice is left untouched.
func FilterAndSort(records []*models.Workflow, c Criteria) []*models.Workflow {
	out := make([]*models.Workflow, 0, len(records))
	for _, w := range records {
		if w != nil && c.Matches(w) {
			out = append(out, w)
		}
	}

	var less func(a, b *models.Workflow) bool
	switch c.Sort {
	case SortDateDesc, "":
		less = func(a, b *models.Workflow) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortDateAsc:
		less = func(a, b *models.Workflow) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortTimeSaved:
		less = func(a, b *models.Workflow) bool { return annualHoursOf(a) > annualHoursOf(b) }
	case SortPriority:
		less = func(a, b *models.Workflow) bool { return a.Priority.Rank() > b.Priority.Rank() }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func annualHoursOf(w *models.Workflow) float64 {
	return AnnualHours(TimeSaved(w.CurrentTime, w.EstimatedTimeAfterAutomation), w.Frequency)
}
