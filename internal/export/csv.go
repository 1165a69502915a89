// Package export renders workflow snapshots as downloadable files.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Formentera-Operations/workflow-tracker/internal/metrics"
	"github.com/Formentera-Operations/workflow-tracker/pkg/models"
)

// Header is the first row of every export.
var Header = []string{
	"Department",
	"Process Name",
	"Description",
	"Current Time (min)",
	"Automated Time (min)",
	"Time Saved (min)",
	"Frequency",
	"Annual Hours Saved",
	"Annual Cost Savings",
	"Programs",
	"Priority",
	"Status",
	"Submitted By",
	"Date",
	"Notes",
}

// Filename returns the download name for an export taken on day.
func Filename(day time.Time) string {
	return "workflow-tracker-" + day.Format(time.DateOnly) + ".csv"
}

// Row returns the export cells for w at hourlyRate, unquoted.
func Row(w *models.Workflow, hourlyRate float64) []string {
	m := metrics.Compute(w, hourlyRate)
	return []string{
		string(w.Department),
		w.ProcessName,
		w.Description,
		strconv.Itoa(w.CurrentTime),
		strconv.Itoa(w.EstimatedTimeAfterAutomation),
		strconv.Itoa(m.TimeSaved),
		string(w.Frequency),
		fmt.Sprintf("%.2f", m.AnnualHours),
		fmt.Sprintf("$%.2f", m.CostSavings),
		strings.Join(w.Programs, "; "),
		string(w.Priority),
		string(w.Status),
		w.SubmittedBy,
		w.Date(),
		w.Notes,
	}
}

// WriteCSV writes the header and one row per record. Rows are separated by
// "\n" and every data cell is wrapped in double quotes, with embedded quotes
// doubled. Unlike encoding/csv, the header is never quoted and data cells
// always are.
func WriteCSV(out io.Writer, records []*models.Workflow, hourlyRate float64) error {
	w := bufio.NewWriter(out)
	if _, err := w.WriteString(strings.Join(Header, ",")); err != nil {
		return err
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		w.WriteByte('\n')
		for i, cell := range Row(rec, hourlyRate) {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(quote(cell))
		}
	}
	return w.Flush()
}

func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
