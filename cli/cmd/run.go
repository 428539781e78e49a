package cmd

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/benchtab/bench"
	"github.com/ardnew/benchtab/log"
	"github.com/ardnew/benchtab/report"
)

// Run benchmarks a suite of expression snippets across a parameter grid
// and prints one table row per combination.
//
// Targets and parameters come from a YAML suite file, inline flags, or
// both; inline snippets and parameters append after the suite's in the
// order given.
type Run struct {
	Suite   string        `arg:""          help:"Benchmark suite file (YAML)"                  optional:""          type:"existingfile"`
	Snippet []string      `                help:"Expression snippet to benchmark"                         short:"e"`
	Param   []string      `                help:"Parameter as name=value[,value...]"                      short:"p"`
	Setup   string        `                help:"Setup expression evaluated per combination"              short:"s"`
	Match   string        `                help:"Fuzzy filter applied to target names"                    short:"m"`
	Repeat  int           `default:"3"     help:"Timing repetitions per combination"`
	MaxLoop int           `default:"100"   help:"Calibration loop count ceiling"      name:"maxloop"`
	MinTime time.Duration `default:"100ms" help:"Minimum trial time during calibration"`
	Memory  bool          `                help:"Sample process memory deltas"                                      negatable:""`
	Verbose bool          `                help:"Include loop and repeat counts"                          short:"v"`
	Color   bool          `default:"true"  help:"Colorize terminal output"                                          negatable:""`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) error {
	targets, params, opts, err := r.configure()
	if err != nil {
		return err
	}

	targets = r.match(targets)

	log.DebugContext(ctx, "run",
		slog.Int("targets", len(targets)),
		slog.Int("params", len(params)),
	)

	results, err := bench.Run(targets, params, opts...)
	if err != nil {
		return bench.WrapError(err).
			With(slog.String("command", "run"))
	}

	color := r.Color && isatty.IsTerminal(os.Stdout.Fd())

	return report.Table(os.Stdout, results,
		report.WithVerbose(r.Verbose),
		report.WithColor(color),
	)
}

// configure merges the suite file, when given, with the inline flags.
// Suite entries come first; flags with non-default values take
// precedence over the suite's policy fields.
func (r *Run) configure() ([]string, []bench.Parameter, []bench.Option, error) {
	var (
		targets []string
		params  []bench.Parameter
		setup   string

		repeat  = r.Repeat
		maxloop = r.MaxLoop
		mintime = r.MinTime
		memory  = r.Memory
	)

	if r.Suite != "" {
		suite, err := LoadSuite(r.Suite)
		if err != nil {
			return nil, nil, nil, err
		}

		targets = append(targets, suite.Targets...)
		params = append(params, suite.parameters()...)
		setup = suite.Setup

		if suite.Repeat > 0 && repeat == bench.DefaultRepeat {
			repeat = suite.Repeat
		}

		if suite.MaxLoop > 0 && maxloop == bench.DefaultMaxLoop {
			maxloop = suite.MaxLoop
		}

		d, err := suite.minTime()
		if err != nil {
			return nil, nil, nil, err
		}

		if d > 0 && mintime == bench.DefaultMinTime {
			mintime = d
		}

		memory = memory || suite.Memory
	}

	targets = append(targets, r.Snippet...)

	for _, arg := range r.Param {
		p, err := parseParam(arg)
		if err != nil {
			return nil, nil, nil, err
		}

		params = append(params, p)
	}

	if r.Setup != "" {
		setup = r.Setup
	}

	opts := []bench.Option{
		bench.WithRepeat(repeat),
		bench.WithMaxLoop(maxloop),
		bench.WithMinTime(mintime),
		bench.WithMemory(memory),
	}

	if setup != "" {
		opts = append(opts, bench.WithSetup(setup))
	}

	return targets, params, opts, nil
}

// match filters targets against the fuzzy pattern, preserving their
// original order. An empty pattern keeps everything.
func (r *Run) match(targets []string) []string {
	if r.Match == "" {
		return targets
	}

	keep := make(map[int]struct{})
	for _, m := range fuzzy.Find(r.Match, targets) {
		keep[m.Index] = struct{}{}
	}

	out := targets[:0:0]

	for i, t := range targets {
		if _, ok := keep[i]; ok {
			out = append(out, t)
		}
	}

	return out
}

// parseParam parses one -p flag of the form name=value[,value...].
// Multiple comma-separated values make the parameter iterated.
func parseParam(arg string) (bench.Parameter, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return bench.Parameter{}, bench.NewError("malformed parameter").
			With(slog.String("arg", arg))
	}

	fields := strings.Split(value, ",")
	if len(fields) == 1 {
		return bench.P(name, parseValue(fields[0])), nil
	}

	values := make([]any, len(fields))
	for i, f := range fields {
		values[i] = parseValue(f)
	}

	return bench.P(name, values), nil
}

// parseValue interprets a flag value as int, float, or bool before
// falling back to string. Numeric forms are tried first so "1" and "0"
// parse as integers rather than booleans.
func parseValue(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}

	return s
}
