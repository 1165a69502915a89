package repository

import (
	"context"
	"errors"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
)

// ErrNotFound is returned when a workflow or setting does not exist.
var ErrNotFound = errors.New("not found")

// WorkflowStore persists workflow proposals.
type WorkflowStore interface {
	// ListWorkflows returns every workflow, newest first.
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// GetWorkflow retrieves a workflow by its ID.
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	// CreateWorkflow stores a new workflow, filling in ID and CreatedAt.
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) error
	// UpdateWorkflow replaces every editable field of the workflow with the
	// given ID and returns the stored row.
	UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error)
	// DeleteWorkflow removes a workflow.
	DeleteWorkflow(ctx context.Context, id string) error
}

// SettingsStore persists application settings.
type SettingsStore interface {
	GetHourlyRate(ctx context.Context) (float64, error)
	SetHourlyRate(ctx context.Context, rate float64) error
}

// Repository is the full record store used by the service layer.
type Repository interface {
	WorkflowStore
	SettingsStore
	Ping(ctx context.Context) error
}
