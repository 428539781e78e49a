package bench

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"runtime"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// calibrationSteps bounds the calibration feedback loop: loop counts
// grow by powers of ten, so ten steps is already 1e9 iterations.
const calibrationSteps = 10

// executor measures one grid cell at a time. The setup program and the
// memory capability are resolved once per run, never per cell.
type executor struct {
	cfg    config
	setup  *vm.Program
	memory bool
}

// newExecutor compiles the setup source and probes the memory-sampling
// capability. Setup compile errors fail the whole run before any
// measurement begins.
func newExecutor(cfg config) (*executor, error) {
	e := &executor{
		cfg:    cfg,
		memory: cfg.memory && memoryAvailable(),
	}

	if cfg.setup != "" {
		program, err := expr.Compile(cfg.setup, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, ErrSnippetCompile.Wrap(err).
				With(slog.String("source", cfg.setup))
		}

		e.setup = program
	}

	return e, nil
}

// measure runs the full setup + timed + memory sequence for one
// (unit, binding) cell. Errors raised by setup or the timed body are
// captured into the returned Measurement rather than propagated, so one
// failing cell never hides the rest of the grid.
func (e *executor) measure(unit *ExecutableUnit, binding Binding) Measurement {
	// Fresh environment per binding: builtins plus the named values.
	env := makeEnv()
	maps.Copy(env, binding.Env())

	if e.setup != nil {
		out, err := runProtected(e.setup, env)
		if err != nil {
			return Measurement{
				Err: ErrSetup.Wrap(err).
					With(slog.String("binding", binding.Key())),
			}
		}

		// A setup evaluating to a map defines additional names for the
		// timed phase, mirroring assignment statements.
		if defs, ok := out.(map[string]any); ok {
			maps.Copy(env, defs)
		}
	}

	run, err := unit.runner(env, binding)
	if err == nil {
		return e.time(run, binding)
	}

	return Measurement{
		Err: ErrExecute.Wrap(err).
			With(
				slog.String("unit", unit.Name()),
				slog.String("binding", binding.Key()),
			),
	}
}

// time calibrates the loop count, then performs the repeated timings
// and optional memory bracket.
func (e *executor) time(run func() error, binding Binding) Measurement {
	loops, trial, err := e.calibrate(run)
	if err != nil {
		return Measurement{
			Err: ErrExecute.Wrap(err).
				With(slog.String("binding", binding.Key())),
		}
	}

	// Collect garbage outside the timed window so earlier cells' debris
	// is not charged to this one.
	runtime.GC()

	var (
		before  memorySample
		sampled bool
	)

	if e.memory {
		before, sampled = sampleMemory()
	}

	times, err := e.repeatTimings(run, loops, trial)
	if err != nil {
		return Measurement{
			Err: ErrExecute.Wrap(err).
				With(slog.String("binding", binding.Key())),
		}
	}

	m := Measurement{
		Elapsed: best(times) / time.Duration(loops),
		Loops:   loops,
		Repeats: len(times),
	}

	if sampled {
		if after, ok := sampleMemory(); ok {
			m.Memory = after.delta(before)
		}
	}

	return m
}

// calibrate chooses the per-repetition loop count: starting from one
// iteration and growing tenfold until a trial's total duration reaches
// the calibration floor, capped by maxloop. It returns the chosen count
// and the last trial's duration.
func (e *executor) calibrate(run func() error) (int, time.Duration, error) {
	loops := 1

	var trial time.Duration

	for i := range calibrationSteps {
		n := 1
		for range i {
			n *= 10
		}

		if n > e.cfg.maxloop {
			break
		}

		loops = n

		var err error

		trial, err = timeLoops(run, loops)
		if err != nil {
			return 0, 0, err
		}

		if trial >= e.cfg.minTime {
			break
		}
	}

	return loops, trial, nil
}

// repeatTimings performs the configured number of timings of loops
// iterations each and returns every total observed.
//
// When calibration settled on a single iteration, its timing is already
// a valid observation and is kept; for slow bodies (over a second per
// call) the remaining repetitions shrink proportionally so a pathological
// cell cannot stall the grid for minutes.
func (e *executor) repeatTimings(
	run func() error,
	loops int,
	trial time.Duration,
) ([]time.Duration, error) {
	if loops > 1 {
		times := make([]time.Duration, 0, e.cfg.repeat)

		for range e.cfg.repeat {
			d, err := timeLoops(run, loops)
			if err != nil {
				return nil, err
			}

			times = append(times, d)
		}

		return times, nil
	}

	extra := e.cfg.repeat - 1
	if trial > time.Second {
		extra = int(float64(e.cfg.repeat) / trial.Seconds())
	}

	times := make([]time.Duration, 0, extra+1)
	times = append(times, trial)

	for range extra {
		d, err := timeLoops(run, 1)
		if err != nil {
			return nil, err
		}

		times = append(times, d)
	}

	return times, nil
}

// timeLoops measures the total wall time of n consecutive runs.
func timeLoops(run func() error, n int) (time.Duration, error) {
	start := time.Now()

	for range n {
		if err := run(); err != nil {
			return 0, err
		}
	}

	return time.Since(start), nil
}

// best returns the minimum observed duration. Measurement noise is
// overwhelmingly positive (preemption, cache misses), so the fastest
// run is the closest estimate of true cost.
func best(times []time.Duration) time.Duration {
	m := times[0]
	for _, d := range times[1:] {
		if d < m {
			m = d
		}
	}

	return m
}

// runner builds the timed body closure for this unit under the given
// binding. Snippets evaluate their compiled program against env;
// callables are invoked with the binding's values conformed to the
// function's signature.
func (u *ExecutableUnit) runner(
	env map[string]any,
	binding Binding,
) (func() error, error) {
	if u.IsSnippet() {
		program := u.program

		return func() (err error) {
			defer recoverError(&err)

			_, err = vm.Run(program, env)

			return err
		}, nil
	}

	in, err := conformArgs(u.fn, binding.Args())
	if err != nil {
		return nil, err
	}

	fn := u.fn

	return func() (err error) {
		defer recoverError(&err)

		fn.Call(in)

		return nil
	}, nil
}

// conformArgs converts the binding's values to the callable's parameter
// types. Arity or type mismatches surface as per-cell execution errors.
func conformArgs(fn reflect.Value, args []any) ([]reflect.Value, error) {
	ft := fn.Type()

	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--

		if len(args) < fixed {
			return nil, fmt.Errorf(
				"callable takes at least %d argument(s), binding has %d",
				fixed, len(args),
			)
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf(
			"callable takes %d argument(s), binding has %d",
			fixed, len(args),
		)
	}

	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		pt := ft.In(min(i, fixed))
		if ft.IsVariadic() && i >= fixed {
			pt = ft.In(fixed).Elem()
		}

		v, err := conformValue(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}

		in[i] = v
	}

	return in, nil
}

// conformValue adapts one value to the target type, allowing the numeric
// conversions a caller would write by hand (int parameters feeding
// float64 arguments and the like).
func conformValue(arg any, target reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(target), nil
	}

	v := reflect.ValueOf(arg)

	switch {
	case v.Type().AssignableTo(target):
		return v, nil

	case v.Type().ConvertibleTo(target):
		return v.Convert(target), nil

	default:
		return reflect.Value{}, fmt.Errorf(
			"cannot use %s as %s", v.Type(), target,
		)
	}
}

// recoverError converts a panic in the timed body into an error so a
// single panicking cell cannot abort the grid walk.
func recoverError(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

// runProtected evaluates a compiled program with panic recovery.
func runProtected(
	program *vm.Program,
	env map[string]any,
) (out any, err error) {
	defer recoverError(&err)

	return vm.Run(program, env)
}
