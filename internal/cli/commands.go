// Package cli provides testable command implementations for the evtprof CLI.
//
// The cobra commands in cmd/evtprof only parse flags and delegate to these
// functions, which take an explicit writer so tests can capture the output.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zebiner/evt-profiler/internal/config"
	"github.com/zebiner/evt-profiler/internal/engine"
	"github.com/zebiner/evt-profiler/internal/logging"
	"github.com/zebiner/evt-profiler/internal/profiler"
)

// RunOptions are the flags of the run command
type RunOptions struct {
	ConfigPath string
	Events     int     // Overrides the task's events when >= 0
	Rate       float64 // Overrides the task's event_rate when >= 0
	LogLevel   string  // Overrides the task's log_level when set
	NoProfile  bool    // Skip the profiling service
}

// TaskSummary describes a validated task
type TaskSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Events     int      `json:"events" yaml:"events"`
	EventRate  float64  `json:"event_rate" yaml:"event_rate"`
	Profiling  bool     `json:"profiling" yaml:"profiling"`
	Algorithms []string `json:"algorithms" yaml:"algorithms"`
}

// RunProfile loads a task, runs it with the profiler attached and writes
// log lines and the report to writer.
func RunProfile(ctx context.Context, opts RunOptions, writer io.Writer) error {
	task, err := config.LoadTask(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task %s: %w", opts.ConfigPath, err)
	}

	levelName := task.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	log := logging.New(logging.Config{Level: level, Output: writer})

	events := task.Events
	if opts.Events >= 0 {
		events = opts.Events
	}
	rate := task.EventRate
	if opts.Rate >= 0 {
		rate = opts.Rate
	}

	specs, err := task.Specs()
	if err != nil {
		return err
	}
	algs, err := engine.BuildAlgorithms(specs)
	if err != nil {
		return err
	}
	run := engine.NewTask(task.TaskName(), algs, engine.Options{
		Log:       log.Module("engine"),
		EventRate: rate,
	})

	if task.ProfilingEnabled() && !opts.NoProfile {
		run.AddService(profiler.New(profiler.Options{
			Config:     task,
			Dispatcher: run.Dispatcher(),
			Sink:       log,
			Log:        log.Module(profiler.DefaultName),
		}))
	}

	stats, err := run.Run(ctx, events)
	if err != nil {
		return fmt.Errorf("task %s failed after %d events: %w", run.Name(), stats.Events, err)
	}
	return nil
}

// ValidateTask checks a task file and prints what would run
func ValidateTask(path, outputFormat string, writer io.Writer) error {
	task, err := config.LoadTask(path)
	if err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task %s: %w", path, err)
	}

	specs, err := task.Specs()
	if err != nil {
		return err
	}
	if _, err := engine.BuildAlgorithms(specs); err != nil {
		return err
	}

	summary := &TaskSummary{
		Name:      task.TaskName(),
		Events:    task.Events,
		EventRate: task.EventRate,
		Profiling: task.ProfilingEnabled(),
	}
	for _, spec := range specs {
		summary.Algorithms = append(summary.Algorithms, spec.Name())
	}

	return OutputSummary(summary, outputFormat, writer)
}

// OutputSummary formats a task summary in the requested format
func OutputSummary(summary *TaskSummary, outputFormat string, writer io.Writer) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		return outputJSON(summary, writer)
	case "yaml":
		return outputYAML(summary, writer)
	case "table", "":
		return outputTable(summary, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(summary *TaskSummary, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

func outputYAML(summary *TaskSummary, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(summary)
}

func outputTable(summary *TaskSummary, writer io.Writer) error {
	fmt.Fprintf(writer, "Task:       %s\n", summary.Name)
	fmt.Fprintf(writer, "Events:     %d\n", summary.Events)
	if summary.EventRate > 0 {
		fmt.Fprintf(writer, "Event rate: %g/s\n", summary.EventRate)
	} else {
		fmt.Fprintln(writer, "Event rate: unthrottled")
	}
	fmt.Fprintf(writer, "Profiling:  %v\n", summary.Profiling)
	fmt.Fprintf(writer, "Algorithms (%d):\n", len(summary.Algorithms))
	for _, name := range summary.Algorithms {
		fmt.Fprintf(writer, "  %s\n", name)
	}
	return nil
}
