package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/justcall-client/pkg/metrics"
	"github.com/olekukonko/tablewriter"
)

// PrintMetrics writes the client metrics recorded by this process: requests,
// retries, gate waits and pages fetched.
func PrintMetrics(w io.Writer) error {
	samples, err := metrics.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	type sampleView struct {
		Name   string            `json:"name" yaml:"name"`
		Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
		Value  float64           `json:"value" yaml:"value"`
	}
	views := make([]sampleView, len(samples))
	for i, s := range samples {
		views[i] = sampleView(s)
	}
	if done, err := encode(w, views); done {
		return err
	}

	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "No metrics recorded")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Labels", "Value")
	for _, s := range samples {
		labels := s.LabelString()
		if labels == "" {
			labels = NotAvailable
		}
		_ = table.Append(s.Name, labels, strconv.FormatFloat(s.Value, 'g', -1, 64))
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
