package main

import (
	"testing"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed_Default(t *testing.T) {
	seed, err := parseSeed([]byte(defaultSeed))
	require.NoError(t, err)

	require.NotNil(t, seed.HourlyRate)
	assert.Equal(t, 50.0, *seed.HourlyRate)
	require.Len(t, seed.Workflows, 4)

	for _, sw := range seed.Workflows {
		w := sw.model()
		assert.True(t, w.Department.Valid(), sw.ProcessName)
		assert.True(t, w.Frequency.Valid(), sw.ProcessName)
		assert.NotEmpty(t, w.Programs, sw.ProcessName)
	}
}

func TestParseSeed_Mapping(t *testing.T) {
	seed, err := parseSeed([]byte(`
workflows:
  - department: IT
    process_name: Password resets
    current_time: 40
    automated_time: 5
    frequency: Daily
    programs: [Active Directory]
    status: Rejected
`))
	require.NoError(t, err)
	assert.Nil(t, seed.HourlyRate)

	w := seed.Workflows[0].model()
	assert.Equal(t, models.DepartmentIT, w.Department)
	assert.Equal(t, 40, w.CurrentTime)
	assert.Equal(t, 5, w.EstimatedTimeAfterAutomation)
	assert.Equal(t, models.StatusRejected, w.Status)
	assert.Equal(t, models.Programs{"Active Directory"}, w.Programs)
}

func TestParseSeed_Errors(t *testing.T) {
	_, err := parseSeed([]byte("workflows: ["))
	assert.Error(t, err)

	_, err = parseSeed([]byte("# nothing here\n"))
	assert.EqualError(t, err, "seed file has no workflows and no hourly_rate")
}
