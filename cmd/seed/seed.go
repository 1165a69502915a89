package main

import (
	"errors"
	"fmt"

	"github.com/Formentera-Operations/workflow-tracker/pkg/models"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	HourlyRate *float64       `yaml:"hourly_rate"`
	Workflows  []seedWorkflow `yaml:"workflows"`
}

type seedWorkflow struct {
	Department    string   `yaml:"department"`
	ProcessName   string   `yaml:"process_name"`
	Description   string   `yaml:"description"`
	CurrentTime   int      `yaml:"current_time"`
	AutomatedTime int      `yaml:"automated_time"`
	Frequency     string   `yaml:"frequency"`
	Programs      []string `yaml:"programs"`
	SubmittedBy   string   `yaml:"submitted_by"`
	Email         string   `yaml:"email"`
	Priority      string   `yaml:"priority"`
	Status        string   `yaml:"status"`
	Notes         string   `yaml:"notes"`
}

func (s seedWorkflow) model() *models.Workflow {
	return &models.Workflow{
		Department:                   models.Department(s.Department),
		ProcessName:                  s.ProcessName,
		Description:                  s.Description,
		CurrentTime:                  s.CurrentTime,
		EstimatedTimeAfterAutomation: s.AutomatedTime,
		Frequency:                    models.Frequency(s.Frequency),
		Programs:                     models.Programs(s.Programs),
		SubmittedBy:                  s.SubmittedBy,
		Email:                        s.Email,
		Priority:                     models.Priority(s.Priority),
		Status:                       models.Status(s.Status),
		Notes:                        s.Notes,
	}
}

func parseSeed(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seed.Workflows) == 0 && seed.HourlyRate == nil {
		return nil, errors.New("seed file has no workflows and no hourly_rate")
	}
	return &seed, nil
}

const defaultSeed = `
hourly_rate: 50
workflows:
  - department: Accounting
    process_name: Invoice matching
    description: Match vendor invoices against purchase orders and receipts before approval.
    current_time: 45
    automated_time: 10
    frequency: Daily
    programs: [SAP, Excel]
    submitted_by: Seed Script
    priority: High
  - department: Operations
    process_name: Daily production report
    description: Collect well production volumes and email the morning summary.
    current_time: 60
    automated_time: 5
    frequency: Daily
    programs: [Excel, Outlook, WellView]
    submitted_by: Seed Script
    priority: High
    status: In Progress
  - department: HR
    process_name: New hire onboarding checklist
    description: Create accounts and send welcome packets for new employees.
    current_time: 120
    automated_time: 30
    frequency: Weekly
    programs: [Workday, Outlook]
    submitted_by: Seed Script
    priority: Medium
  - department: Supply Chain
    process_name: Vendor compliance review
    description: Check insurance certificates and W-9s for active vendors.
    current_time: 240
    automated_time: 60
    frequency: Quarterly
    programs: [Excel, SharePoint]
    submitted_by: Seed Script
    priority: Low
    status: Automated
`
