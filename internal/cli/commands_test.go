package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zebiner/evt-profiler/internal/profiling"
)

const sampleTask = `
name: Reconstruction
events: 3
algorithms:
  - identifier: Noop/trackFit
  - identifier: Sleep/vertexFit
    params:
      duration: 1ms
`

func writeTask(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func defaultRun(path string) RunOptions {
	return RunOptions{ConfigPath: path, Events: -1, Rate: -1}
}

func TestRunProfilePrintsReport(t *testing.T) {
	var out bytes.Buffer
	err := RunProfile(context.Background(), defaultRun(writeTask(t, sampleTask)), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "############################## EventProfiler ##############################")
	assert.Contains(t, text, "trackFit                 3")
	assert.Contains(t, text, "vertexFit                3")
	assert.Contains(t, text, "Sum of Reconstruction    3")
	assert.Contains(t, text, "finalized successfully")
}

func TestRunProfileOverrides(t *testing.T) {
	path := writeTask(t, sampleTask)

	var out bytes.Buffer
	opts := defaultRun(path)
	opts.Events = 1
	opts.LogLevel = "debug"
	require.NoError(t, RunProfile(context.Background(), opts, &out))

	text := out.String()
	assert.Contains(t, text, "trackFit                 1")
	assert.Contains(t, text, "the algorithm vertexFit took")

	out.Reset()
	opts = defaultRun(path)
	opts.NoProfile = true
	require.NoError(t, RunProfile(context.Background(), opts, &out))
	assert.NotContains(t, out.String(), "EventProfiler")
}

func TestRunProfileDisabledInTask(t *testing.T) {
	var out bytes.Buffer
	path := writeTask(t, "profiling: false\nevents: 1\nalgorithms: [{identifier: x}]\n")
	require.NoError(t, RunProfile(context.Background(), defaultRun(path), &out))
	assert.NotContains(t, out.String(), "Sum of")
}

func TestRunProfileErrors(t *testing.T) {
	testCases := []struct {
		name     string
		task     string
		opts     func(RunOptions) RunOptions
		contains string
	}{
		{
			name:     "missing algorithms",
			task:     "name: T\n",
			contains: "missing field",
		},
		{
			name:     "unknown algorithm type",
			task:     "algorithms: [{identifier: Warp/x}]\n",
			contains: "no algorithm type",
		},
		{
			name:     "bad log level flag",
			task:     sampleTask,
			opts:     func(o RunOptions) RunOptions { o.LogLevel = "loud"; return o },
			contains: "invalid log level",
		},
		{
			name:     "unknown field",
			task:     "algoritms: []\n",
			contains: "algoritms",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := defaultRun(writeTask(t, tc.task))
			if tc.opts != nil {
				opts = tc.opts(opts)
			}
			err := RunProfile(context.Background(), opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestRunProfileMissingFile(t *testing.T) {
	err := RunProfile(context.Background(), defaultRun(filepath.Join(t.TempDir(), "nope.yaml")), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read task file")
}

func TestRunProfileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := RunProfile(ctx, defaultRun(writeTask(t, sampleTask)), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 0 events")
	// The report is still printed on the way out.
	assert.Contains(t, out.String(), "Sum of Reconstruction    0")
}

func TestValidateTaskFormats(t *testing.T) {
	path := writeTask(t, sampleTask)

	var table bytes.Buffer
	require.NoError(t, ValidateTask(path, "table", &table))
	assert.Contains(t, table.String(), "Task:       Reconstruction")
	assert.Contains(t, table.String(), "Algorithms (2):")
	assert.Contains(t, table.String(), "Event rate: unthrottled")

	var js bytes.Buffer
	require.NoError(t, ValidateTask(path, "json", &js))
	var fromJSON TaskSummary
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, []string{"trackFit", "vertexFit"}, fromJSON.Algorithms)
	assert.True(t, fromJSON.Profiling)

	var ym bytes.Buffer
	require.NoError(t, ValidateTask(path, "YAML", &ym))
	var fromYAML TaskSummary
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, 3, fromYAML.Events)

	err := ValidateTask(path, "xml", &bytes.Buffer{})
	assert.EqualError(t, err, "unsupported output format: xml")
}

func TestValidateTaskRejectsBadAlgorithms(t *testing.T) {
	path := writeTask(t, "algorithms:\n  - identifier: Sleep/x\n  - identifier: ''\n")
	err := ValidateTask(path, "table", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, profiling.ErrConfiguration)
	assert.True(t, strings.Contains(err.Error(), "algorithms[1]"))
}
