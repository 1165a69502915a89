package metrics

import (
	"sort"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
)

// TopProgramsLimit caps the number of programs reported in Summary.TopPrograms.
const TopProgramsLimit = 5

// ProgramCount is the number of workflows that list a program.
type ProgramCount struct {
	Program string `json:"program"`
	Count   int    `json:"count"`
}

// DepartmentStat summarises the workflows of one department.
type DepartmentStat struct {
	Department  models.Department `json:"department"`
	Count       int               `json:"count"`
	AnnualHours float64           `json:"annualHours"`
}

// StatusCount is the number of workflows in one status.
type StatusCount struct {
	Status models.Status `json:"status"`
	Count  int           `json:"count"`
}

// Summary is the dashboard's aggregate view of the whole collection.
type Summary struct {
	TotalCount             int              `json:"totalCount"`
	TotalTimeSavedMinutes  float64          `json:"totalTimeSavedMinutes"` // annualised
	TotalAnnualHours       float64          `json:"totalAnnualHours"`
	TotalAnnualCostSavings float64          `json:"totalAnnualCostSavings"`
	AverageTimeSaved       float64          `json:"averageTimeSaved"` // per occurrence, minutes
	HourlyRate             float64          `json:"hourlyRate"`
	ProgramUsage           map[string]int   `json:"programUsage"`
	TopPrograms            []ProgramCount   `json:"topPrograms"`
	Departments            []DepartmentStat `json:"departments"`
	Statuses               []StatusCount    `json:"statuses"`
}

// Aggregate folds records into a Summary at hourlyRate. It is recomputed from
// scratch on every call.
func Aggregate(records []*models.Workflow, hourlyRate float64) Summary {
	s := Summary{
		TotalCount:   len(records),
		HourlyRate:   hourlyRate,
		ProgramUsage: make(map[string]int),
		TopPrograms:  []ProgramCount{},
		Departments:  []DepartmentStat{},
		Statuses:     make([]StatusCount, 0, len(models.AllStatuses)),
	}

	var (
		programOrder []string
		sumSaved     int
		deptIndex    = make(map[models.Department]*DepartmentStat, len(models.AllDepartments))
		statusIndex  = make(map[models.Status]int, len(models.AllStatuses))
	)
	depts := make([]DepartmentStat, len(models.AllDepartments))
	for i, d := range models.AllDepartments {
		depts[i].Department = d
		deptIndex[d] = &depts[i]
	}

	for _, w := range records {
		if w == nil {
			continue
		}
		m := Compute(w, hourlyRate)
		sumSaved += m.TimeSaved
		s.TotalTimeSavedMinutes += float64(m.TimeSaved) * FrequencyMultiplier(w.Frequency)
		s.TotalAnnualHours += m.AnnualHours
		s.TotalAnnualCostSavings += m.CostSavings

		seen := make(map[string]bool, len(w.Programs))
		for _, p := range w.Programs {
			if seen[p] {
				continue
			}
			seen[p] = true
			if _, ok := s.ProgramUsage[p]; !ok {
				programOrder = append(programOrder, p)
			}
			s.ProgramUsage[p]++
		}

		if d, ok := deptIndex[w.Department]; ok {
			d.Count++
			d.AnnualHours += m.AnnualHours
		}
		statusIndex[w.Status]++
	}

	if len(records) > 0 {
		s.AverageTimeSaved = float64(sumSaved) / float64(len(records))
	}

	ranked := make([]ProgramCount, 0, len(programOrder))
	for _, p := range programOrder {
		ranked = append(ranked, ProgramCount{Program: p, Count: s.ProgramUsage[p]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > TopProgramsLimit {
		ranked = ranked[:TopProgramsLimit]
	}
	s.TopPrograms = ranked

	for _, d := range depts {
		if d.Count > 0 {
			s.Departments = append(s.Departments, d)
		}
	}
	for _, st := range models.AllStatuses {
		s.Statuses = append(s.Statuses, StatusCount{Status: st, Count: statusIndex[st]})
	}
	return s
}
