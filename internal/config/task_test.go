package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zebiner/evt-profiler/internal/profiling"
)

const sampleTask = `
name: Reconstruction
log_level: debug
events: 3
event_rate: 25
algorithms:
  - identifier: Sleep/trackFit
    params:
      duration: 10ms
  - identifier: Noop/vertexFit
  - identifier: calib
`

func TestParseTask(t *testing.T) {
	task, err := ParseTask([]byte(sampleTask))
	require.NoError(t, err)

	assert.Equal(t, "Reconstruction", task.TaskName())
	assert.Equal(t, "debug", task.LogLevel)
	assert.Equal(t, 3, task.Events)
	assert.Equal(t, 25.0, task.EventRate)
	assert.True(t, task.ProfilingEnabled())
	require.NoError(t, task.Validate())

	ids, err := task.AlgorithmIdentifiers()
	require.NoError(t, err)
	assert.Equal(t, []string{"trackFit", "vertexFit", "calib"}, ids)

	specs, err := task.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "Sleep", specs[0].Namespace())
	assert.Equal(t, "10ms", specs[0].Params["duration"])
	assert.Equal(t, "", specs[2].Namespace())
}

func TestParseTaskJSON(t *testing.T) {
	data := `{"name": "Sim", "profiling": false, "algorithms": [{"identifier": "Noop/gen"}]}`
	task, err := ParseTask([]byte(data))
	require.NoError(t, err)

	assert.False(t, task.ProfilingEnabled())
	ids, err := task.AlgorithmIdentifiers()
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, ids)
}

func TestParseTaskDefaults(t *testing.T) {
	task, err := ParseTask([]byte("algorithms: []\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTaskName, task.TaskName())

	ids, err := task.AlgorithmIdentifiers()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParseTaskErrors(t *testing.T) {
	_, err := ParseTask(nil)
	assert.EqualError(t, err, "task description is empty")

	_, err = ParseTask([]byte("unknown_field: 1\n"))
	assert.Error(t, err)

	_, err = ParseTask([]byte("events: [1, 2\n"))
	assert.Error(t, err)
}

func TestAlgorithmIdentifiersMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
	}{
		{"missing field", "name: T\n", "algorithms"},
		{"not a list", "algorithms: trackFit\n", "algorithms"},
		{"mapping", "algorithms: {identifier: a/b}\n", "algorithms"},
		{"scalar entry", "algorithms: [a/b]\n", "algorithms[0]"},
		{"missing identifier", "algorithms: [{params: {}}]\n", "algorithms[0]"},
		{"trailing slash", "algorithms: [{identifier: Sleep/}]\n", "algorithms[0]"},
		{"identifier not string", "algorithms:\n  - identifier: [x]\n", "algorithms[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTask([]byte(tt.doc))
			require.NoError(t, err)

			ids, err := task.AlgorithmIdentifiers()
			assert.Nil(t, ids)
			require.Error(t, err)
			assert.ErrorIs(t, err, profiling.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.key)

			assert.Error(t, task.Validate())
		})
	}
}

func TestAlgorithmName(t *testing.T) {
	assert.Equal(t, "trackFit", AlgorithmName("Sleep/trackFit"))
	assert.Equal(t, "fit", AlgorithmName("ns/sub/fit"))
	assert.Equal(t, "plain", AlgorithmName("plain"))
	assert.Equal(t, "", AlgorithmName("ns/"))

	spec := AlgorithmSpec{Identifier: "ns/sub/fit"}
	assert.Equal(t, "ns/sub", spec.Namespace())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"negative events", "events: -1\nalgorithms: []\n", "events must not be negative, got -1"},
		{"negative rate", "event_rate: -2\nalgorithms: []\n", "event_rate must not be negative, got -2"},
		{"bad log level", "log_level: loud\nalgorithms: []\n", `invalid log level: "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTask([]byte(tt.doc))
			require.NoError(t, err)
			assert.EqualError(t, task.Validate(), tt.want)
		})
	}

	t.Run("name required", func(t *testing.T) {
		task := &Task{}
		require.NoError(t, yaml.Unmarshal([]byte("algorithms: []\n"), task))
		assert.EqualError(t, task.Validate(), "name failed required check")
	})
}

func TestLoadTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTask), 0o600))

	task, err := LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, "Reconstruction", task.Name)

	_, err = LoadTask(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read task file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("events: nope\n"), 0o600))
	_, err = LoadTask(bad)
	assert.ErrorContains(t, err, "failed to parse")
}
