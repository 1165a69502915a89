package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Formentera-Operations/workflow-tracker/internal/export"
	"github.com/Formentera-Operations/workflow-tracker/internal/metrics"
	"github.com/Formentera-Operations/workflow-tracker/internal/notify"
	"github.com/Formentera-Operations/workflow-tracker/internal/repository"
	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Formentera-Operations/workflow-tracker/internal/services"

// MutationResult is returned by every write. Workflows is the collection
// re-read from the store after the write succeeded.
type MutationResult struct {
	Workflow  *models.Workflow   `json:"workflow,omitempty"`
	Workflows []*models.Workflow `json:"workflows"`
}

// SubmitResult reports a public submission. The workflow is stored even when
// the notification fails.
type SubmitResult struct {
	Workflow          *models.Workflow `json:"workflow"`
	Notified          bool             `json:"notified"`
	NotificationError string           `json:"notificationError,omitempty"`
}

// Dashboard is the admin view: the filtered list plus statistics over the
// whole collection.
type Dashboard struct {
	Workflows []*models.Workflow `json:"workflows"`
	Summary   metrics.Summary    `json:"summary"`
}

// WorkflowService coordinates the record store, the notification gateway and
// the metrics engine.
type WorkflowService struct {
	repo        repository.Repository
	notifier    Notifier
	logger      Logger
	defaultRate float64

	submissions   metric.Int64Counter
	notifications metric.Int64Counter
	exports       metric.Int64Counter
}

// NewWorkflowService creates a new WorkflowService. defaultRate is used when
// the stored hourly rate cannot be read.
func NewWorkflowService(repo repository.Repository, notifier Notifier, logger Logger, defaultRate float64) *WorkflowService {
	s := &WorkflowService{
		repo:        repo,
		notifier:    notifier,
		logger:      logger,
		defaultRate: defaultRate,
	}

	meter := otel.Meter(meterName)
	s.submissions = s.counter(meter, "workflow.submissions", "Workflows created through the public form or the admin API")
	s.notifications = s.counter(meter, "workflow.notifications", "Submission notification attempts")
	s.exports = s.counter(meter, "workflow.exports", "CSV exports served")
	return s
}

func (s *WorkflowService) counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", name, "error", err)
	}
	return c
}

func (s *WorkflowService) add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Submit stores a public submission with status Pending Review and, when an
// email address is given, sends the notification emails.
func (s *WorkflowService) Submit(ctx context.Context, w *models.Workflow) (*SubmitResult, error) {
	w.ID = ""
	w.Status = models.StatusPendingReview
	if err := normalize(w); err != nil {
		return nil, err
	}

	if err := s.repo.CreateWorkflow(ctx, w); err != nil {
		s.logger.Error("failed to store submission", "process", w.ProcessName, "error", err)
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	s.add(ctx, s.submissions, attribute.String("source", "public"), attribute.String("department", string(w.Department)))
	s.logger.Info("workflow submitted", "id", w.ID, "department", w.Department)

	result := &SubmitResult{Workflow: w}
	if w.Email == "" {
		return result, nil
	}

	err := s.Notify(ctx, notify.Submission{
		Email:       w.Email,
		Name:        w.SubmittedBy,
		ProcessName: w.ProcessName,
		Department:  string(w.Department),
	})
	if err != nil {
		result.NotificationError = notify.ErrDelivery.Error()
		return result, nil
	}
	result.Notified = true
	return result, nil
}

// Notify sends the submission emails.
func (s *WorkflowService) Notify(ctx context.Context, sub notify.Submission) error {
	err := s.notifier.NotifySubmission(ctx, sub)
	s.add(ctx, s.notifications, attribute.Bool("ok", err == nil))
	if err != nil {
		s.logger.Error("failed to send submission emails", "process", sub.ProcessName, "error", err)
	}
	return err
}

// Create stores a workflow entered by an admin. Status may be any value and
// defaults to Pending Review.
func (s *WorkflowService) Create(ctx context.Context, w *models.Workflow) (*MutationResult, error) {
	w.ID = ""
	if err := normalize(w); err != nil {
		return nil, err
	}
	if err := s.repo.CreateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	s.add(ctx, s.submissions, attribute.String("source", "admin"), attribute.String("department", string(w.Department)))
	s.logger.Info("workflow created", "id", w.ID)
	return s.refresh(ctx, w)
}

// Update replaces every editable field of the workflow with the given ID.
func (s *WorkflowService) Update(ctx context.Context, id string, w *models.Workflow) (*MutationResult, error) {
	if err := normalize(w); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateWorkflow(ctx, id, w)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}
	s.logger.Info("workflow updated", "id", id, "status", updated.Status)
	return s.refresh(ctx, updated)
}

// Delete removes a workflow.
func (s *WorkflowService) Delete(ctx context.Context, id string) (*MutationResult, error) {
	if err := s.repo.DeleteWorkflow(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete workflow: %w", err)
	}
	s.logger.Info("workflow deleted", "id", id)
	return s.refresh(ctx, nil)
}

func (s *WorkflowService) refresh(ctx context.Context, w *models.Workflow) (*MutationResult, error) {
	all, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh workflows: %w", err)
	}
	return &MutationResult{Workflow: w, Workflows: all}, nil
}

// Get returns a single workflow.
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return s.repo.GetWorkflow(ctx, id)
}

// List returns the workflows matching c in the order it selects.
func (s *WorkflowService) List(ctx context.Context, c metrics.Criteria) ([]*models.Workflow, error) {
	all, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return metrics.FilterAndSort(all, c), nil
}

// Stats aggregates the whole collection at the current hourly rate.
func (s *WorkflowService) Stats(ctx context.Context) (metrics.Summary, error) {
	all, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return metrics.Summary{}, fmt.Errorf("failed to list workflows: %w", err)
	}
	return metrics.Aggregate(all, s.HourlyRate(ctx)), nil
}

// Dashboard loads one snapshot and derives both the filtered list and the
// statistics from it.
func (s *WorkflowService) Dashboard(ctx context.Context, c metrics.Criteria) (*Dashboard, error) {
	all, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return &Dashboard{
		Workflows: metrics.FilterAndSort(all, c),
		Summary:   metrics.Aggregate(all, s.HourlyRate(ctx)),
	}, nil
}

// ExportCSV writes every workflow, ignoring any list filters.
func (s *WorkflowService) ExportCSV(ctx context.Context, w io.Writer) error {
	all, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}
	if err := export.WriteCSV(w, all, s.HourlyRate(ctx)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	s.add(ctx, s.exports)
	return nil
}

// HourlyRate returns the stored rate, or the configured default when it
// cannot be read.
func (s *WorkflowService) HourlyRate(ctx context.Context) float64 {
	rate, err := s.repo.GetHourlyRate(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to fetch hourly rate", "error", err)
		}
		return s.defaultRate
	}
	return rate
}

// SetHourlyRate stores a new hourly rate. Last write wins.
func (s *WorkflowService) SetHourlyRate(ctx context.Context, rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	if err := s.repo.SetHourlyRate(ctx, rate); err != nil {
		return fmt.Errorf("failed to update hourly rate: %w", err)
	}
	s.logger.Info("hourly rate updated", "rate", rate)
	return nil
}
