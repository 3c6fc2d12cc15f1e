package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zebiner/evt-profiler/internal/config"
	"github.com/zebiner/evt-profiler/internal/profiling"
)

func TestBuildAlgorithms(t *testing.T) {
	specs := []config.AlgorithmSpec{
		{Identifier: "Noop/a"},
		{Identifier: "Sleep/b", Params: map[string]interface{}{"duration": "2ms"}},
		{Identifier: "Spin/c", Params: map[string]interface{}{"duration": 1}},
		{Identifier: "d"},
	}

	algs, err := BuildAlgorithms(specs)
	require.NoError(t, err)
	require.Len(t, algs, 4)

	assert.IsType(t, &noop{}, algs[0])
	assert.Equal(t, 2*time.Millisecond, algs[1].(*sleep).duration)
	assert.Equal(t, time.Millisecond, algs[2].(*spin).duration)
	assert.IsType(t, &noop{}, algs[3])

	for i, want := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, algs[i].Name())
	}
}

func TestBuildAlgorithmsErrors(t *testing.T) {
	tests := []struct {
		name string
		spec config.AlgorithmSpec
	}{
		{"unknown namespace", config.AlgorithmSpec{Identifier: "Missing/x"}},
		{"bad duration", config.AlgorithmSpec{Identifier: "Sleep/x", Params: map[string]interface{}{"duration": "soon"}}},
		{"negative duration", config.AlgorithmSpec{Identifier: "Spin/x", Params: map[string]interface{}{"duration": -3}}},
		{"unsupported type", config.AlgorithmSpec{Identifier: "Sleep/x", Params: map[string]interface{}{"duration": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAlgorithms([]config.AlgorithmSpec{tt.spec})
			require.Error(t, err)
			assert.ErrorIs(t, err, profiling.ErrConfiguration)
			assert.Contains(t, err.Error(), "algorithms[0]")
		})
	}
}

func TestRegisterAlgorithm(t *testing.T) {
	factory := func(spec config.AlgorithmSpec) (Algorithm, error) {
		return &noop{name: "custom-" + spec.Name()}, nil
	}

	require.NoError(t, RegisterAlgorithm("TestCustom", factory))
	assert.Error(t, RegisterAlgorithm("TestCustom", factory))
	assert.Error(t, RegisterAlgorithm("", factory))
	assert.Error(t, RegisterAlgorithm("TestNil", nil))
	assert.Contains(t, Namespaces(), "TestCustom")
	assert.NotContains(t, Namespaces(), "")

	algs, err := BuildAlgorithms([]config.AlgorithmSpec{{Identifier: "TestCustom/fit"}})
	require.NoError(t, err)
	assert.Equal(t, "custom-fit", algs[0].Name())
}

func TestSleepHonoursContext(t *testing.T) {
	alg := &sleep{name: "s", duration: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, alg.Execute(ctx, &Event{}), context.Canceled)
	assert.NoError(t, (&sleep{name: "z"}).Execute(context.Background(), &Event{}))
}

func TestSpinRunsForDuration(t *testing.T) {
	alg := &spin{name: "s", duration: 2 * time.Millisecond}

	start := time.Now()
	require.NoError(t, alg.Execute(context.Background(), &Event{}))
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
}

func TestDurationParam(t *testing.T) {
	d, err := durationParam(nil, "duration")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = durationParam(map[string]interface{}{"duration": 1.5}, "duration")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Microsecond, d)
}
