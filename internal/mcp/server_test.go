package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Formentera-Operations/workflow-tracker/internal/metrics"
	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, c metrics.Criteria) ([]*models.Workflow, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockService) Stats(ctx context.Context) (metrics.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(metrics.Summary), args.Error(1)
}

func (m *MockService) HourlyRate(ctx context.Context) float64 {
	return m.Called(ctx).Get(0).(float64)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListWorkflows(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, metrics.Criteria{Department: "IT", Sort: metrics.SortTimeSaved}).
		Return([]*models.Workflow{{ID: "wf-1", ProcessName: "Resets"}}, nil)
	s := NewServer(svc, "test")

	res, err := s.handleListWorkflows(context.Background(), call(map[string]any{"department": "IT", "sort": "time-saved"}))

	require.NoError(t, err)
	assert.False(t, res.IsError)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Resets", got[0]["processName"])
}

func TestListWorkflows_Errors(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	s := NewServer(svc, "test")

	res, err := s.handleListWorkflows(context.Background(), call(map[string]any{"sort": "name"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)

	res, err = s.handleListWorkflows(context.Background(), call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "db down")
}

func TestWorkflowStats(t *testing.T) {
	svc := new(MockService)
	svc.On("Stats", mock.Anything).Return(metrics.Summary{TotalCount: 3, HourlyRate: 50}, nil)

	res, err := NewServer(svc, "test").handleWorkflowStats(context.Background(), call(nil))

	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"totalCount":3`)
}

func TestComputeSavings(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    metrics.Savings
		wantErr bool
	}{
		{
			name: "explicit rate",
			args: map[string]any{"current": 40.0, "automated": 5.0, "frequency": "Daily", "rate": 50.0},
			want: metrics.Savings{TimeSaved: 35, AnnualHours: 35.0 * 260 / 60, CostSavings: 35.0 * 260 / 60 * 50},
		},
		{
			name: "stored rate",
			args: map[string]any{"current": 60.0, "automated": 0.0, "frequency": "Monthly"},
			want: metrics.Savings{TimeSaved: 60, AnnualHours: 12, CostSavings: 960},
		},
		{
			name: "automation slower than today",
			args: map[string]any{"current": 5.0, "automated": 40.0, "frequency": "Weekly", "rate": 50.0},
			want: metrics.Savings{},
		},
		{
			name:    "missing frequency",
			args:    map[string]any{"current": 5.0, "automated": 1.0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("HourlyRate", mock.Anything).Return(80.0)

			res, err := NewServer(svc, "test").handleComputeSavings(context.Background(), call(tt.args))
			require.NoError(t, err)
			if tt.wantErr {
				assert.True(t, res.IsError)
				return
			}

			var got metrics.Savings
			require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
			assert.Equal(t, tt.want.TimeSaved, got.TimeSaved)
			assert.InDelta(t, tt.want.AnnualHours, got.AnnualHours, 1e-9)
			assert.InDelta(t, tt.want.CostSavings, got.CostSavings, 1e-9)
		})
	}
}
