// Package notify sends the submission emails through the Resend API.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
)

var (
	// ErrMissingFields is returned when email, name or process name is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrDelivery is returned when either message could not be sent.
	ErrDelivery = errors.New("failed to send email notifications")
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// EmailSender is the part of the Resend client used here.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Submission describes a newly submitted workflow for the notification emails.
type Submission struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	ProcessName string `json:"processName"`
	Department  string `json:"department"`
}

// Config holds the addresses used for outgoing mail.
type Config struct {
	From   string
	Admin  string
	AppURL string
}

// Notifier sends an acknowledgement to the submitter and an alert to the
// admin address.
type Notifier struct {
	sender EmailSender
	cfg    Config
	logger Logger
}

// New creates a Notifier that sends through sender.
func New(sender EmailSender, cfg Config, logger Logger) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, logger: logger}
}

// NewResend creates a Notifier backed by the Resend API.
func NewResend(apiKey string, cfg Config, logger Logger) *Notifier {
	return New(resend.NewClient(apiKey).Emails, cfg, logger)
}

// NotifySubmission sends both emails. Each send is attempted once; the
// submitter acknowledgement goes first and a failure there skips the admin
// alert.
func (n *Notifier) NotifySubmission(ctx context.Context, s Submission) error {
	if s.Email == "" || s.Name == "" || s.ProcessName == "" {
		return ErrMissingFields
	}

	data := struct {
		Submission
		DashboardURL string
	}{Submission: s, DashboardURL: n.cfg.AppURL + "/admin"}

	ack, err := render(acknowledgementTmpl, data)
	if err != nil {
		return err
	}
	if err := n.send(ctx, s.Email, "Workflow Submission Received", ack); err != nil {
		return err
	}

	alert, err := render(adminAlertTmpl, data)
	if err != nil {
		return err
	}
	if err := n.send(ctx, n.cfg.Admin, "New Workflow Submission: "+s.ProcessName, alert); err != nil {
		return err
	}

	if n.logger != nil {
		n.logger.Info("submission emails sent", "process", s.ProcessName, "submitter", s.Email)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, to, subject, html string) error {
	_, err := n.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		if n.logger != nil {
			n.logger.Error("email send error", "to", to, "subject", subject, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}
