package services

import (
	"context"

	"github.com/Formentera-Operations/workflow-tracker/internal/notify"
)

// Notifier sends the emails that follow a public submission.
type Notifier interface {
	// NotifySubmission acknowledges the submitter and alerts the admins.
	NotifySubmission(ctx context.Context, s notify.Submission) error
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
