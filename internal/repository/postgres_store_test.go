package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))
	// idempotent
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Ping(ctx))

	newWorkflow := func(name string) *models.Workflow {
		return &models.Workflow{
			Department:                   models.DepartmentIT,
			ProcessName:                  name,
			Description:                  `Reset "locked" accounts`,
			CurrentTime:                  40,
			EstimatedTimeAfterAutomation: 5,
			Frequency:                    models.FrequencyDaily,
			Programs:                     models.Programs{"Active Directory", "ServiceNow"},
			SubmittedBy:                  "Dana",
			Email:                        "dana@example.com",
			Priority:                     models.PriorityHigh,
			Status:                       models.StatusPendingReview,
		}
	}

	t.Run("Create and Get round-trip every field", func(t *testing.T) {
		w := newWorkflow("Password resets")
		require.NoError(t, store.CreateWorkflow(ctx, w))
		assert.NotEmpty(t, w.ID)
		assert.False(t, w.CreatedAt.IsZero())

		got, err := store.GetWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.ID, got.ID)
		assert.Equal(t, w.Department, got.Department)
		assert.Equal(t, w.ProcessName, got.ProcessName)
		assert.Equal(t, w.Description, got.Description)
		assert.Equal(t, 40, got.CurrentTime)
		assert.Equal(t, 5, got.EstimatedTimeAfterAutomation)
		assert.Equal(t, w.Frequency, got.Frequency)
		assert.Equal(t, w.Programs, got.Programs)
		assert.Equal(t, w.SubmittedBy, got.SubmittedBy)
		assert.Equal(t, w.Email, got.Email)
		assert.Equal(t, w.Priority, got.Priority)
		assert.Equal(t, w.Status, got.Status)
		assert.Equal(t, "", got.Notes)
		assert.WithinDuration(t, w.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("Update keeps ID and CreatedAt", func(t *testing.T) {
		w := newWorkflow("Vendor onboarding")
		w.Email = ""
		require.NoError(t, store.CreateWorkflow(ctx, w))

		edit := *w
		edit.Status = models.StatusAutomated
		edit.Notes = "done in Q3"
		edit.Programs = models.Programs{"Coupa"}
		updated, err := store.UpdateWorkflow(ctx, w.ID, &edit)
		require.NoError(t, err)
		assert.Equal(t, w.ID, updated.ID)
		assert.WithinDuration(t, w.CreatedAt, updated.CreatedAt, time.Millisecond)
		assert.Equal(t, models.StatusAutomated, updated.Status)
		assert.Equal(t, "done in Q3", updated.Notes)
		assert.Equal(t, models.Programs{"Coupa"}, updated.Programs)
		assert.Equal(t, "", updated.Email)
	})

	t.Run("List is newest first", func(t *testing.T) {
		list, err := store.ListWorkflows(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Vendor onboarding", list[0].ProcessName)
		assert.Equal(t, "Password resets", list[1].ProcessName)
	})

	t.Run("Missing rows", func(t *testing.T) {
		_, err := store.GetWorkflow(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetWorkflow(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.UpdateWorkflow(ctx, uuid.New().String(), newWorkflow("x"))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteWorkflow(ctx, uuid.New().String()), ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		w := newWorkflow("Temporary")
		require.NoError(t, store.CreateWorkflow(ctx, w))
		require.NoError(t, store.DeleteWorkflow(ctx, w.ID))
		_, err := store.GetWorkflow(ctx, w.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Hourly rate", func(t *testing.T) {
		rate, err := store.GetHourlyRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50.0, rate)

		require.NoError(t, store.SetHourlyRate(ctx, 72.5))
		rate, err = store.GetHourlyRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 72.5, rate)
	})
}
