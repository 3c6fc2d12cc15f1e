// Package profiler provides profiling report generation
package profiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/zebiner/evt-profiler/internal/profiling"
)

const (
	bannerFill  = 30
	nameWidth   = 25
	summaryName = nameWidth - len("Sum of ")
)

// Report holds the statistics captured when a session is deactivated
type Report struct {
	Title      string            // Banner title
	Task       string            // Enclosing task, labels the event summary
	Algorithms []profiling.Stats // One row per algorithm, registry order
	Event      profiling.Stats   // Event timer summary
}

// Render writes the report as a fixed-width text table.
// Output depends only on the captured statistics.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	banner := fmt.Sprintf("%s %s %s", strings.Repeat("#", bannerFill), r.Title, strings.Repeat("#", bannerFill))
	b.WriteString(banner + "\n")

	fmt.Fprintf(&b, "%-25s%-12s%-15s%-13s%-13s\n", "Name", "Count", "Total(ms)", "Mean(ms)", "RMS(ms)")

	for _, row := range r.Algorithms {
		fmt.Fprintf(&b, "%-25s", row.Name)
		writeStats(&b, row)
	}

	fmt.Fprintf(&b, "Sum of %-*s", summaryName, r.Task)
	writeStats(&b, r.Event)

	b.WriteString(strings.Repeat("#", len(banner)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the report to a string
func (r *Report) String() string {
	var b strings.Builder
	_ = r.Render(&b)
	return b.String()
}

// Row returns the algorithm row for name
func (r *Report) Row(name string) (profiling.Stats, bool) {
	for _, row := range r.Algorithms {
		if row.Name == name {
			return row, true
		}
	}
	return profiling.Stats{}, false
}

func writeStats(b *strings.Builder, s profiling.Stats) {
	fmt.Fprintf(b, "%-12d%-15.5f%-13.5f%-13.5f\n", s.Count, s.Total, s.Mean, s.RMS)
}
