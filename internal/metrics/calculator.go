package metrics

import "github.com/Formentera-Operations/workflow-tracker/pkg/models"

// DefaultHourlyRate is used when no rate has been configured.
const DefaultHourlyRate = 50.0

var frequencyMultipliers = map[models.Frequency]float64{
	models.FrequencyDaily:     260,
	models.FrequencyWeekly:    52,
	models.FrequencyMonthly:   12,
	models.FrequencyQuarterly: 4,
}

// FrequencyMultiplier returns how many times per year a workflow with the given
// frequency runs. Daily assumes 260 working days. Unknown labels count once.
func FrequencyMultiplier(f models.Frequency) float64 {
	if m, ok := frequencyMultipliers[f]; ok {
		return m
	}
	return 1
}

// TimeSaved returns the minutes saved per occurrence. Estimates where the
// automated time exceeds the current time count as zero savings.
func TimeSaved(current, automated int) int {
	return max(0, current-automated)
}

// AnnualHours converts per-occurrence minutes saved into hours per year.
func AnnualHours(timeSaved int, f models.Frequency) float64 {
	return float64(timeSaved) * FrequencyMultiplier(f) / 60
}

// CostSavings prices annual hours at the given hourly rate.
func CostSavings(annualHours, hourlyRate float64) float64 {
	return annualHours * hourlyRate
}

// Savings holds the derived figures for one workflow. Values are not rounded.
type Savings struct {
	TimeSaved   int     `json:"timeSaved"`
	AnnualHours float64 `json:"annualHours"`
	CostSavings float64 `json:"costSavings"`
}

// Compute derives all savings figures for w at hourlyRate.
func Compute(w *models.Workflow, hourlyRate float64) Savings {
	saved := TimeSaved(w.CurrentTime, w.EstimatedTimeAfterAutomation)
	hours := AnnualHours(saved, w.Frequency)
	return Savings{
		TimeSaved:   saved,
		AnnualHours: hours,
		CostSavings: CostSavings(hours, hourlyRate),
	}
}
