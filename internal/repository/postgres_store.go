package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const hourlyRateKey = "hourly_rate"

// "current_time" must stay quoted: unquoted it is the SQL CURRENT_TIME function.
const workflowColumns = `id, department, process_name, description, "current_time",
	estimated_time_after_automation, frequency, programs, submitted_by, email,
	priority, status, notes, created_at`

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist and seeds the default
// hourly rate.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ListWorkflows returns every workflow, newest first.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, "SELECT "+workflowColumns+" FROM workflows ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*models.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// GetWorkflow retrieves a workflow by its ID.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)
	return notFound(scanWorkflow(row))
}

// CreateWorkflow stores a new workflow. ID and CreatedAt are filled in from
// the inserted row.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}
	row := s.db.QueryRow(ctx, `INSERT INTO workflows (id, department, process_name, description,
		"current_time", estimated_time_after_automation, frequency, programs, submitted_by,
		email, priority, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+workflowColumns,
		workflow.ID, workflow.Department, workflow.ProcessName, workflow.Description,
		workflow.CurrentTime, workflow.EstimatedTimeAfterAutomation, workflow.Frequency,
		[]string(workflow.Programs), workflow.SubmittedBy, nullIfEmpty(workflow.Email),
		workflow.Priority, workflow.Status, workflow.Notes,
	)
	stored, err := scanWorkflow(row)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	*workflow = *stored
	return nil
}

// UpdateWorkflow overwrites the editable fields of a workflow. ID and
// CreatedAt are never changed.
func (s *PostgresStore) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx, `UPDATE workflows SET department = $2, process_name = $3,
		description = $4, "current_time" = $5, estimated_time_after_automation = $6,
		frequency = $7, programs = $8, submitted_by = $9, email = $10, priority = $11,
		status = $12, notes = $13
		WHERE id = $1
		RETURNING `+workflowColumns,
		id, workflow.Department, workflow.ProcessName, workflow.Description,
		workflow.CurrentTime, workflow.EstimatedTimeAfterAutomation, workflow.Frequency,
		[]string(workflow.Programs), workflow.SubmittedBy, nullIfEmpty(workflow.Email),
		workflow.Priority, workflow.Status, workflow.Notes,
	)
	return notFound(scanWorkflow(row))
}

// DeleteWorkflow removes a workflow.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetHourlyRate returns the stored hourly rate.
func (s *PostgresStore) GetHourlyRate(ctx context.Context) (float64, error) {
	var value string
	err := s.db.QueryRow(ctx, "SELECT setting_value FROM app_settings WHERE setting_key = $1", hourlyRateKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get hourly rate: %w", err)
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored hourly rate %q: %w", value, err)
	}
	return rate, nil
}

// SetHourlyRate stores the hourly rate, replacing any previous value.
func (s *PostgresStore) SetHourlyRate(ctx context.Context, rate float64) error {
	_, err := s.db.Exec(ctx, `INSERT INTO app_settings (setting_key, setting_value) VALUES ($1, $2)
		ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value`,
		hourlyRateKey, strconv.FormatFloat(rate, 'f', -1, 64))
	if err != nil {
		return fmt.Errorf("failed to set hourly rate: %w", err)
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var (
		w        models.Workflow
		programs []string
		email    *string
	)
	err := row.Scan(&w.ID, &w.Department, &w.ProcessName, &w.Description, &w.CurrentTime,
		&w.EstimatedTimeAfterAutomation, &w.Frequency, &programs, &w.SubmittedBy, &email,
		&w.Priority, &w.Status, &w.Notes, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.Programs = models.Programs(programs)
	if w.Programs == nil {
		w.Programs = models.Programs{}
	}
	if email != nil {
		w.Email = *email
	}
	return &w, nil
}

// notFound maps missing rows and malformed UUIDs to ErrNotFound.
func notFound(w *models.Workflow, err error) (*models.Workflow, error) {
	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows), isInvalidID(err):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02" // invalid_text_representation
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
