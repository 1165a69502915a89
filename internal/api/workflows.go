// Package api contains the HTTP handlers for the workflow tracker
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Formentera-Operations/workflow-tracker/internal/auth"
	"github.com/Formentera-Operations/workflow-tracker/internal/export"
	"github.com/Formentera-Operations/workflow-tracker/internal/metrics"
	"github.com/Formentera-Operations/workflow-tracker/internal/services"
	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// WorkflowService is the part of services.WorkflowService the API uses.
type WorkflowService interface {
	Submit(ctx context.Context, w *models.Workflow) (*services.SubmitResult, error)
	Create(ctx context.Context, w *models.Workflow) (*services.MutationResult, error)
	Update(ctx context.Context, id string, w *models.Workflow) (*services.MutationResult, error)
	Delete(ctx context.Context, id string) (*services.MutationResult, error)
	Get(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, c metrics.Criteria) ([]*models.Workflow, error)
	Dashboard(ctx context.Context, c metrics.Criteria) (*services.Dashboard, error)
	Stats(ctx context.Context) (metrics.Summary, error)
	ExportCSV(ctx context.Context, w io.Writer) error
	HourlyRate(ctx context.Context) float64
	SetHourlyRate(ctx context.Context, rate float64) error
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Error(msg string, args ...any)
}

// ListWorkflowsParams are the query parameters of GET /workflows.
type ListWorkflowsParams struct {
	Search     *string `form:"search,omitempty"`
	Department *string `form:"department,omitempty"`
	Status     *string `form:"status,omitempty"`
	Priority   *string `form:"priority,omitempty"`
	Sort       *string `form:"sort,omitempty"`
}

// HourlyRate is the body of the hourly-rate endpoints.
type HourlyRate struct {
	HourlyRate float64 `json:"hourlyRate"`
}

// ServerInterface represents all server handlers under /api/v1.
type ServerInterface interface {
	// (GET /me)
	GetMe(ctx echo.Context) error
	// (GET /workflows)
	ListWorkflows(ctx echo.Context, params ListWorkflowsParams) error
	// (POST /workflows)
	CreateWorkflow(ctx echo.Context) error
	// (GET /workflows/{id})
	GetWorkflow(ctx echo.Context, id string) error
	// (PUT /workflows/{id})
	UpdateWorkflow(ctx echo.Context, id string) error
	// (DELETE /workflows/{id})
	DeleteWorkflow(ctx echo.Context, id string) error
	// (GET /dashboard)
	GetDashboard(ctx echo.Context, params ListWorkflowsParams) error
	// (GET /stats)
	GetStats(ctx echo.Context) error
	// (GET /export)
	ExportWorkflows(ctx echo.Context) error
	// (GET /settings/hourly-rate)
	GetHourlyRate(ctx echo.Context) error
	// (PUT /settings/hourly-rate)
	PutHourlyRate(ctx echo.Context) error
}

// Server holds the dependencies for the API server.
type Server struct {
	Service WorkflowService
	Logger  Logger
	now     func() time.Time
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new Server.
func NewServer(svc WorkflowService, logger Logger) *Server {
	return &Server{Service: svc, Logger: logger, now: time.Now}
}

func (s *Server) fail(c echo.Context, err error, failure string) error {
	problem := problemFor(err, failure)
	if problem.Status >= http.StatusInternalServerError && s.Logger != nil {
		s.Logger.Error(failure, "path", c.Path(), "error", err)
	}
	problem.Instance = c.Request().URL.Path
	writeProblem(c.Response(), problem)
	return nil
}

func badRequest(c echo.Context, detail string) error {
	writeError(c.Response(), http.StatusBadRequest, http.StatusText(http.StatusBadRequest), detail)
	return nil
}

// SubmitWorkflow stores a public submission and sends the notification emails
// when an address is given.
// (POST /api/v1/submissions)
func (s *Server) SubmitWorkflow(c echo.Context) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := s.Service.Submit(c.Request().Context(), &workflow)
	if err != nil {
		return s.fail(c, err, "Failed to submit workflow")
	}
	return c.JSON(http.StatusCreated, result)
}

// GetMe returns the signed-in admin.
// (GET /api/v1/me)
func (s *Server) GetMe(c echo.Context) error {
	session, ok := auth.SessionFromContext(c.Request().Context())
	if !ok {
		writeError(c.Response(), http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "Not signed in")
		return nil
	}
	return c.JSON(http.StatusOK, session)
}

func criteriaFrom(params ListWorkflowsParams) (metrics.Criteria, error) {
	sortKey, err := metrics.ParseSortKey(deref(params.Sort))
	if err != nil {
		return metrics.Criteria{}, err
	}
	return metrics.Criteria{
		Search:     deref(params.Search),
		Department: deref(params.Department),
		Status:     deref(params.Status),
		Priority:   deref(params.Priority),
		Sort:       sortKey,
	}, nil
}

// ListWorkflows returns the workflows matching the query, newest first unless
// another sort is requested.
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context, params ListWorkflowsParams) error {
	criteria, err := criteriaFrom(params)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflows, err := s.Service.List(c.Request().Context(), criteria)
	if err != nil {
		return s.fail(c, err, "Failed to load workflows")
	}
	return c.JSON(http.StatusOK, workflows)
}

// GetDashboard returns the filtered list together with statistics over the
// whole collection, both taken from one snapshot.
// (GET /api/v1/dashboard)
func (s *Server) GetDashboard(c echo.Context, params ListWorkflowsParams) error {
	criteria, err := criteriaFrom(params)
	if err != nil {
		return badRequest(c, err.Error())
	}

	dashboard, err := s.Service.Dashboard(c.Request().Context(), criteria)
	if err != nil {
		return s.fail(c, err, "Failed to load workflows")
	}
	return c.JSON(http.StatusOK, dashboard)
}

// CreateWorkflow adds a workflow from the admin dashboard.
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := s.Service.Create(c.Request().Context(), &workflow)
	if err != nil {
		return s.fail(c, err, "Failed to create workflow")
	}
	return c.JSON(http.StatusCreated, result)
}

// GetWorkflow returns a single workflow.
// (GET /api/v1/workflows/{id})
func (s *Server) GetWorkflow(c echo.Context, id string) error {
	workflow, err := s.Service.Get(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, "Failed to load workflow")
	}
	return c.JSON(http.StatusOK, workflow)
}

// UpdateWorkflow replaces the editable fields of a workflow.
// (PUT /api/v1/workflows/{id})
func (s *Server) UpdateWorkflow(c echo.Context, id string) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := s.Service.Update(c.Request().Context(), id, &workflow)
	if err != nil {
		return s.fail(c, err, "Failed to update workflow")
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteWorkflow removes a workflow.
// (DELETE /api/v1/workflows/{id})
func (s *Server) DeleteWorkflow(c echo.Context, id string) error {
	result, err := s.Service.Delete(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, "Failed to delete workflow")
	}
	return c.JSON(http.StatusOK, result)
}

// GetStats returns the aggregate savings over every workflow.
// (GET /api/v1/stats)
func (s *Server) GetStats(c echo.Context) error {
	summary, err := s.Service.Stats(c.Request().Context())
	if err != nil {
		return s.fail(c, err, "Failed to compute statistics")
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportWorkflows returns every workflow as a CSV attachment.
// (GET /api/v1/export)
func (s *Server) ExportWorkflows(c echo.Context) error {
	var buf bytes.Buffer
	if err := s.Service.ExportCSV(c.Request().Context(), &buf); err != nil {
		return s.fail(c, err, "Failed to export workflows")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.Filename(s.now())))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetHourlyRate returns the rate used for cost savings.
// (GET /api/v1/settings/hourly-rate)
func (s *Server) GetHourlyRate(c echo.Context) error {
	return c.JSON(http.StatusOK, HourlyRate{HourlyRate: s.Service.HourlyRate(c.Request().Context())})
}

// PutHourlyRate changes the rate used for cost savings.
// (PUT /api/v1/settings/hourly-rate)
func (s *Server) PutHourlyRate(c echo.Context) error {
	var body HourlyRate
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := s.Service.SetHourlyRate(c.Request().Context(), body.HourlyRate); err != nil {
		return s.fail(c, err, "Failed to update hourly rate")
	}
	return c.JSON(http.StatusOK, body)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// GetMe converts echo context to params.
func (w *ServerInterfaceWrapper) GetMe(ctx echo.Context) error {
	return w.Handler.GetMe(ctx)
}

func bindListParams(ctx echo.Context) (ListWorkflowsParams, error) {
	var params ListWorkflowsParams

	for _, name := range []struct {
		key  string
		dest **string
	}{
		{"search", &params.Search},
		{"department", &params.Department},
		{"status", &params.Status},
		{"priority", &params.Priority},
		{"sort", &params.Sort},
	} {
		err := runtime.BindQueryParameter("form", true, false, name.key, ctx.QueryParams(), name.dest)
		if err != nil {
			return params, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name.key, err))
		}
	}
	return params, nil
}

// ListWorkflows converts echo context to params.
func (w *ServerInterfaceWrapper) ListWorkflows(ctx echo.Context) error {
	params, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ListWorkflows(ctx, params)
}

// GetDashboard converts echo context to params.
func (w *ServerInterfaceWrapper) GetDashboard(ctx echo.Context) error {
	params, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	return w.Handler.GetDashboard(ctx, params)
}

// CreateWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) CreateWorkflow(ctx echo.Context) error {
	return w.Handler.CreateWorkflow(ctx)
}

func bindID(ctx echo.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return id, nil
}

// GetWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) GetWorkflow(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.GetWorkflow(ctx, id)
}

// UpdateWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) UpdateWorkflow(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.UpdateWorkflow(ctx, id)
}

// DeleteWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) DeleteWorkflow(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	return w.Handler.DeleteWorkflow(ctx, id)
}

// GetStats converts echo context to params.
func (w *ServerInterfaceWrapper) GetStats(ctx echo.Context) error {
	return w.Handler.GetStats(ctx)
}

// ExportWorkflows converts echo context to params.
func (w *ServerInterfaceWrapper) ExportWorkflows(ctx echo.Context) error {
	return w.Handler.ExportWorkflows(ctx)
}

// GetHourlyRate converts echo context to params.
func (w *ServerInterfaceWrapper) GetHourlyRate(ctx echo.Context) error {
	return w.Handler.GetHourlyRate(ctx)
}

// PutHourlyRate converts echo context to params.
func (w *ServerInterfaceWrapper) PutHourlyRate(ctx echo.Context) error {
	return w.Handler.PutHourlyRate(ctx)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	CONNECT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	HEAD(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	OPTIONS(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	TRACE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the handlers, each prefixed with
// baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET(baseURL+"/me", wrapper.GetMe)
	router.GET(baseURL+"/workflows", wrapper.ListWorkflows)
	router.POST(baseURL+"/workflows", wrapper.CreateWorkflow)
	router.GET(baseURL+"/workflows/:id", wrapper.GetWorkflow)
	router.PUT(baseURL+"/workflows/:id", wrapper.UpdateWorkflow)
	router.DELETE(baseURL+"/workflows/:id", wrapper.DeleteWorkflow)
	router.GET(baseURL+"/dashboard", wrapper.GetDashboard)
	router.GET(baseURL+"/stats", wrapper.GetStats)
	router.GET(baseURL+"/export", wrapper.ExportWorkflows)
	router.GET(baseURL+"/settings/hourly-rate", wrapper.GetHourlyRate)
	router.PUT(baseURL+"/settings/hourly-rate", wrapper.PutHourlyRate)
}
