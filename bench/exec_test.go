package bench

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// testExecutor builds an executor with a fast measurement policy.
func testExecutor(t *testing.T, opts ...Option) *executor {
	t.Helper()

	base := []Option{
		WithRepeat(1),
		WithMaxLoop(1),
		WithMinTime(time.Nanosecond),
	}

	exec, err := newExecutor(apply(defaultConfig(), append(base, opts...)...))
	if err != nil {
		t.Fatal(err)
	}

	return exec
}

// testBinding classifies the parameters and returns the first binding.
func testBinding(t *testing.T, params ...Parameter) Binding {
	t.Helper()

	space, err := Classify(params...)
	if err != nil {
		t.Fatal(err)
	}

	for b := range space.Bindings() {
		return b
	}

	t.Fatal("no bindings")

	return Binding{}
}

// testUnit normalizes a single target.
func testUnit(t *testing.T, target any) *ExecutableUnit {
	t.Helper()

	set, err := Targets(target)
	if err != nil {
		t.Fatal(err)
	}

	return set.Units()[0]
}

// TestCalibrateCap tests that calibration never exceeds maxloop.
func TestCalibrateCap(t *testing.T) {
	exec, err := newExecutor(apply(defaultConfig(),
		WithMaxLoop(100),
		WithMinTime(time.Hour),
	))
	if err != nil {
		t.Fatal(err)
	}

	loops, _, err := exec.calibrate(func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if loops != 100 {
		t.Errorf("loops = %d, want maxloop cap 100", loops)
	}
}

// TestCalibrateFloor tests that a slow body settles on one iteration.
func TestCalibrateFloor(t *testing.T) {
	exec := testExecutor(t, WithMaxLoop(1000), WithMinTime(time.Microsecond))

	loops, trial, err := exec.calibrate(func() error {
		time.Sleep(10 * time.Microsecond)

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if loops != 1 {
		t.Errorf("loops = %d, want 1", loops)
	}

	if trial < 10*time.Microsecond {
		t.Errorf("trial = %v, want at least the body's duration", trial)
	}
}

// TestRepeatTimingsKeepsTrial tests that a single-iteration calibration
// trial counts as the first observation.
func TestRepeatTimingsKeepsTrial(t *testing.T) {
	exec := testExecutor(t, WithRepeat(3))

	trial := 5 * time.Millisecond

	times, err := exec.repeatTimings(func() error { return nil }, 1, trial)
	if err != nil {
		t.Fatal(err)
	}

	if len(times) != 3 {
		t.Fatalf("observations = %d, want 3", len(times))
	}

	if times[0] != trial {
		t.Errorf("first observation = %v, want calibration trial %v", times[0], trial)
	}
}

// TestRepeatTimingsShrinksForSlowBodies tests that repeats shrink when
// one call exceeds a second.
func TestRepeatTimingsShrinksForSlowBodies(t *testing.T) {
	exec := testExecutor(t, WithRepeat(3))

	// A 3s trial caps extra repeats at int(3 / 3) = 1.
	times, err := exec.repeatTimings(func() error { return nil }, 1, 3*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if len(times) != 2 {
		t.Errorf("observations = %d, want 2 (trial plus one extra)", len(times))
	}
}

// TestBest tests minimum selection.
func TestBest(t *testing.T) {
	times := []time.Duration{
		3 * time.Millisecond,
		time.Millisecond,
		2 * time.Millisecond,
	}

	if got := best(times); got != time.Millisecond {
		t.Errorf("best() = %v, want 1ms", got)
	}
}

// TestMeasureSnippet tests a full measurement of a snippet cell.
func TestMeasureSnippet(t *testing.T) {
	exec := testExecutor(t)

	m := exec.measure(
		testUnit(t, "n * n"),
		testBinding(t, P("n", 4)),
	)

	if m.Failed() {
		t.Fatalf("measure() failed: %v", m.Err)
	}

	if m.Loops < 1 || m.Repeats < 1 {
		t.Errorf("Loops = %d, Repeats = %d; want at least 1 each", m.Loops, m.Repeats)
	}

	if m.Memory != nil {
		t.Error("Memory sampled without WithMemory")
	}
}

// TestMeasureCallable tests a full measurement of a callable cell with
// positional and named values.
func TestMeasureCallable(t *testing.T) {
	exec := testExecutor(t)

	called := false
	target := func(prefix string, n int) string {
		called = true

		return strings.Repeat(prefix, n)
	}

	m := exec.measure(
		testUnit(t, target),
		testBinding(t, Pos("ab"), P("n", 3)),
	)

	if m.Failed() {
		t.Fatalf("measure() failed: %v", m.Err)
	}

	if !called {
		t.Error("callable was never invoked")
	}
}

// TestMeasureSetup tests that a setup evaluating to a map extends the
// snippet environment.
func TestMeasureSetup(t *testing.T) {
	exec := testExecutor(t, WithSetup(`{data: ints(n)}`))

	m := exec.measure(
		testUnit(t, "len(data)"),
		testBinding(t, P("n", 8)),
	)

	if m.Failed() {
		t.Fatalf("measure() failed: %v", m.Err)
	}
}

// TestMeasureSetupError tests that a failing setup is captured as an
// ErrSetup cell failure.
func TestMeasureSetupError(t *testing.T) {
	exec := testExecutor(t, WithSetup(`undefinedCall(n)`))

	m := exec.measure(
		testUnit(t, "n"),
		testBinding(t, P("n", 1)),
	)

	if !errors.Is(m.Err, ErrSetup) {
		t.Errorf("Err = %v, want ErrSetup", m.Err)
	}
}

// TestMeasureExecuteError tests that a failing timed body is captured
// as an ErrExecute cell failure.
func TestMeasureExecuteError(t *testing.T) {
	exec := testExecutor(t)

	m := exec.measure(
		testUnit(t, "1 % n"),
		testBinding(t, P("n", 0)),
	)

	if !errors.Is(m.Err, ErrExecute) {
		t.Errorf("Err = %v, want ErrExecute", m.Err)
	}
}

// TestMeasureCallablePanic tests that a panicking callable is captured
// rather than aborting the caller.
func TestMeasureCallablePanic(t *testing.T) {
	exec := testExecutor(t)

	m := exec.measure(
		testUnit(t, func() { panic("deliberate") }),
		testBinding(t),
	)

	if !errors.Is(m.Err, ErrExecute) {
		t.Errorf("Err = %v, want ErrExecute", m.Err)
	}

	if !strings.Contains(m.Err.Error(), "deliberate") {
		t.Errorf("Err = %v, want panic payload", m.Err)
	}
}

// TestMeasureArityMismatch tests that a binding/signature mismatch is a
// per-cell failure.
func TestMeasureArityMismatch(t *testing.T) {
	exec := testExecutor(t)

	m := exec.measure(
		testUnit(t, func(a, b int) int { return a + b }),
		testBinding(t, P("n", 1)),
	)

	if !errors.Is(m.Err, ErrExecute) {
		t.Errorf("Err = %v, want ErrExecute", m.Err)
	}
}

// TestConformArgs tests argument adaptation to the callable signature.
func TestConformArgs(t *testing.T) {
	tests := []struct {
		name    string
		fn      any
		args    []any
		wantErr bool
	}{
		{name: "exact", fn: func(int, string) {}, args: []any{1, "a"}},
		{name: "convertible", fn: func(float64) {}, args: []any{1}},
		{name: "variadic empty", fn: func(...int) {}, args: nil},
		{name: "variadic filled", fn: func(string, ...int) {}, args: []any{"a", 1, 2}},
		{name: "too few", fn: func(int) {}, args: nil, wantErr: true},
		{name: "too many", fn: func(int) {}, args: []any{1, 2}, wantErr: true},
		{name: "incompatible", fn: func(chan int) {}, args: []any{"a"}, wantErr: true},
		{name: "nil arg", fn: func([]byte) {}, args: []any{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conformArgs(reflect.ValueOf(tt.fn), tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("conformArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewExecutorSetupCompileError tests that a bad setup source fails
// the run up front.
func TestNewExecutorSetupCompileError(t *testing.T) {
	_, err := newExecutor(apply(defaultConfig(), WithSetup("n +")))
	if !errors.Is(err, ErrSnippetCompile) {
		t.Errorf("newExecutor() error = %v, want ErrSnippetCompile", err)
	}
}
