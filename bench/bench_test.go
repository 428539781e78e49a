package bench

import (
	"errors"
	"testing"
	"time"
)

// fastOpts keeps measurement loops minimal for test grids.
func fastOpts(opts ...Option) []Option {
	return append([]Option{
		WithRepeat(1),
		WithMaxLoop(1),
		WithMinTime(time.Nanosecond),
	}, opts...)
}

// TestRunSnippetGrid tests a full run over a snippet and a parameter
// grid, including row order.
func TestRunSnippetGrid(t *testing.T) {
	results, err := Run(
		"repeat(s, n)",
		[]Parameter{
			P("s", []string{"a", "bb"}),
			P("n", []int{1, 10}),
		},
		fastOpts()...,
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"s=a n=1",
		"s=a n=10",
		"s=bb n=1",
		"s=bb n=10",
	}

	cells := results.Cells()
	if len(cells) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(cells), len(want))
	}

	for i, key := range want {
		if got := cells[i].Binding.Key(); got != key {
			t.Errorf("cell %d key = %q, want %q", i, got, key)
		}

		if cells[i].Measurement.Failed() {
			t.Errorf("cell %d failed: %v", i, cells[i].Measurement.Err)
		}
	}
}

// TestRunUnitMajorOrder tests that each target is fully swept before the
// next target begins.
func TestRunUnitMajorOrder(t *testing.T) {
	results, err := Run(
		[]string{"n + 1", "n * 2"},
		[]Parameter{P("n", []int{1, 2})},
		fastOpts()...,
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct{ unit, key string }{
		{"n + 1", "n=1"},
		{"n + 1", "n=2"},
		{"n * 2", "n=1"},
		{"n * 2", "n=2"},
	}

	cells := results.Cells()
	if len(cells) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(cells), len(want))
	}

	for i, w := range want {
		if cells[i].Unit.Name() != w.unit || cells[i].Binding.Key() != w.key {
			t.Errorf("cell %d = (%q, %q), want (%q, %q)",
				i, cells[i].Unit.Name(), cells[i].Binding.Key(), w.unit, w.key)
		}
	}
}

// TestRunCallable tests a run over a Go callable target.
func TestRunCallable(t *testing.T) {
	target := func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i * i
		}

		return out
	}

	results, err := Run(target, []Parameter{P("n", []int{4, 8})}, fastOpts()...)
	if err != nil {
		t.Fatal(err)
	}

	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", results.Len())
	}

	for _, cell := range results.Cells() {
		if cell.Measurement.Failed() {
			t.Errorf("cell %q failed: %v", cell.Binding.Key(), cell.Measurement.Err)
		}
	}
}

// TestRunFailureIsolation tests that a failing cell does not suppress
// measurements of the remaining grid.
func TestRunFailureIsolation(t *testing.T) {
	results, err := Run(
		"1 % n",
		[]Parameter{P("n", []int{0, 1})},
		fastOpts()...,
	)
	if err != nil {
		t.Fatal(err)
	}

	failed, ok := results.Lookup("1 % n", "n=0")
	if !ok || !failed.Failed() {
		t.Errorf("n=0 cell = %+v, want captured failure", failed)
	}

	passed, ok := results.Lookup("1 % n", "n=1")
	if !ok || passed.Failed() {
		t.Errorf("n=1 cell = %+v, want success", passed)
	}
}

// TestRunSetup tests setup definitions feeding the timed snippet.
func TestRunSetup(t *testing.T) {
	results, err := Run(
		"len(data)",
		[]Parameter{P("n", []int{2, 4})},
		fastOpts(WithSetup(`{data: ints(n)}`))...,
	)
	if err != nil {
		t.Fatal(err)
	}

	for _, cell := range results.Cells() {
		if cell.Measurement.Failed() {
			t.Errorf("cell %q failed: %v", cell.Binding.Key(), cell.Measurement.Err)
		}
	}
}

// TestRunConfigurationErrors tests the fail-fast validation paths.
func TestRunConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		targets any
		params  []Parameter
		opts    []Option
		wantErr error
	}{
		{
			name:    "no targets",
			targets: []string{},
			wantErr: ErrNoTargets,
		},
		{
			name:    "bad target type",
			targets: 42,
			wantErr: ErrTargetType,
		},
		{
			name:    "bad snippet",
			targets: "n +",
			wantErr: ErrSnippetCompile,
		},
		{
			name:    "bad parameter",
			targets: "n",
			params:  []Parameter{P("n", nil)},
			wantErr: ErrParameterType,
		},
		{
			name:    "snippet with positional",
			targets: "n",
			params:  []Parameter{Pos(1), P("n", 2)},
			wantErr: ErrPositionalArgs,
		},
		{
			name:    "invalid repeat",
			targets: "n",
			opts:    []Option{WithRepeat(0)},
			wantErr: ErrRepeatCount,
		},
		{
			name:    "invalid maxloop",
			targets: "n",
			opts:    []Option{WithMaxLoop(0)},
			wantErr: ErrMaxLoop,
		},
		{
			name:    "bad setup",
			targets: "n",
			opts:    []Option{WithSetup("n +")},
			wantErr: ErrSnippetCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.targets, tt.params, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestRunMemoryDisabled tests that deltas are absent rather than zero
// when sampling is off.
func TestRunMemoryDisabled(t *testing.T) {
	results, err := Run("alloc(n)", []Parameter{P("n", 1024)}, fastOpts()...)
	if err != nil {
		t.Fatal(err)
	}

	for _, cell := range results.Cells() {
		if cell.Measurement.Memory != nil {
			t.Errorf("cell %q has delta without sampling", cell.Binding.Key())
		}
	}
}

// TestRunMemoryEnabled tests that deltas appear when sampling is on and
// the host supports it.
func TestRunMemoryEnabled(t *testing.T) {
	if !memoryAvailable() {
		t.Skip("per-process memory usage not exposed on this host")
	}

	results, err := Run(
		"alloc(n)",
		[]Parameter{P("n", 1024)},
		fastOpts(WithMemory(true))...,
	)
	if err != nil {
		t.Fatal(err)
	}

	for _, cell := range results.Cells() {
		if cell.Measurement.Memory == nil {
			t.Errorf("cell %q has no delta with sampling enabled", cell.Binding.Key())
		}
	}
}

// TestRunNoParameters tests that a parameterless run measures each
// target exactly once.
func TestRunNoParameters(t *testing.T) {
	results, err := Run("1 + 1", nil, fastOpts()...)
	if err != nil {
		t.Fatal(err)
	}

	if results.Len() != 1 {
		t.Errorf("Len() = %d, want 1", results.Len())
	}
}
