package services

import (
	"errors"
	"math"
	"strings"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError lists the fields that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "Please fill in all required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// normalize trims free text, applies defaults for optional enumerations and
// checks required fields. It runs before any I/O.
func normalize(w *models.Workflow) error {
	w.ProcessName = strings.TrimSpace(w.ProcessName)
	w.Description = strings.TrimSpace(w.Description)
	w.SubmittedBy = strings.TrimSpace(w.SubmittedBy)
	w.Email = strings.TrimSpace(w.Email)
	w.Notes = strings.TrimSpace(w.Notes)
	w.Programs = w.Programs.Normalize()
	if w.Frequency == "" {
		w.Frequency = models.FrequencyDaily
	}
	if w.Priority == "" {
		w.Priority = models.PriorityMedium
	}
	if w.Status == "" {
		w.Status = models.StatusPendingReview
	}

	var fields []string
	if !w.Department.Valid() {
		fields = append(fields, "department")
	}
	if w.ProcessName == "" {
		fields = append(fields, "processName")
	}
	if w.Description == "" {
		fields = append(fields, "description")
	}
	if w.CurrentTime <= 0 {
		fields = append(fields, "currentTime")
	}
	if w.EstimatedTimeAfterAutomation < 0 {
		fields = append(fields, "estimatedTimeAfterAutomation")
	}
	if !w.Frequency.Valid() {
		fields = append(fields, "frequency")
	}
	if len(w.Programs) == 0 {
		fields = append(fields, "programs")
	}
	if w.SubmittedBy == "" {
		fields = append(fields, "submittedBy")
	}
	if !w.Priority.Valid() {
		fields = append(fields, "priority")
	}
	if !w.Status.Valid() {
		fields = append(fields, "status")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateRate(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return &ValidationError{Fields: []string{"hourlyRate"}}
	}
	return nil
}
