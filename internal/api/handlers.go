package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Formentera-Operations/workflow-tracker/internal/notify"
	"github.com/Formentera-Operations/workflow-tracker/internal/repository"
	"github.com/Formentera-Operations/workflow-tracker/internal/services"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier sends the submission emails.
type Notifier interface {
	Notify(ctx context.Context, s notify.Submission) error
}

// Handler contains the plain net/http handlers: health and the email
// notification endpoint.
type Handler struct {
	db       Pinger
	notifier Notifier
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(db Pinger, notifier Notifier) *Handler {
	return &Handler{db: db, notifier: notifier}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "workflow-tracker",
		Version:   Version,
		Database:  "ok",
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Database = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleNotify sends the acknowledgement and admin alert for a submission.
// (POST /api/notify)
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var sub notify.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	err := h.notifier.Notify(r.Context(), sub)
	switch {
	case errors.Is(err, notify.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send email notifications"})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't change response at this point
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail"`
	Instance string   `json:"instance,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	json.NewEncoder(w).Encode(problem)
}

// problemFor maps a service error onto a problem document. failure is the
// detail shown for unexpected errors; the underlying error is never exposed.
func problemFor(err error, failure string) ProblemDetails {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return ProblemDetails{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusBadRequest),
			Status: http.StatusBadRequest,
			Detail: "Please fill in all required fields",
			Fields: verr.Fields,
		}
	case errors.Is(err, repository.ErrNotFound):
		return ProblemDetails{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusNotFound),
			Status: http.StatusNotFound,
			Detail: "Workflow not found",
		}
	default:
		return ProblemDetails{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: failure,
		}
	}
}
