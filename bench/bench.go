package bench

import (
	"log/slog"

	"github.com/ardnew/benchtab/log"
)

// Run measures every target against every combination of parameter
// values and returns the accumulated results.
//
// Targets are normalized per [Targets]; parameters are classified per
// [Classify]. When multiple targets are supplied they form the outermost
// dimension: each target is fully swept across all bindings before the
// next target begins.
//
// Configuration problems (unresolvable targets or parameters, invalid
// repeat policy, snippet compile failures, snippets mixed with
// positional parameters) fail fast before any measurement. Failures
// inside one cell's setup or timed body are captured into that cell's
// Measurement and the walk proceeds; a comparison table is still
// produced for the combinations that succeed.
func Run(targets any, params []Parameter, opts ...Option) (*ResultSet, error) {
	cfg := apply(defaultConfig(), opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	set, err := Targets(targets)
	if err != nil {
		return nil, err
	}

	space, err := Classify(params...)
	if err != nil {
		return nil, err
	}

	if set.hasSnippet() && space.positional > 0 {
		return nil, ErrPositionalArgs.
			With(slog.Int("positional", space.positional))
	}

	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	log.Debug("benchmark grid",
		slog.Int("targets", set.Len()),
		slog.Int("bindings", space.Size()),
		slog.Bool("memory", exec.memory),
	)

	results := &ResultSet{
		index: make(map[string]int),
	}

	for _, unit := range set.Units() {
		for binding := range space.Bindings() {
			m := exec.measure(unit, binding)
			if m.Err != nil {
				log.Warn("cell failed",
					slog.String("unit", unit.Name()),
					slog.String("binding", binding.Key()),
					slog.Any("error", m.Err),
				)
			} else {
				log.Trace("cell measured",
					slog.String("unit", unit.Name()),
					slog.String("binding", binding.Key()),
					slog.Duration("elapsed", m.Elapsed),
					slog.Int("loops", m.Loops),
				)
			}

			results.add(Cell{
				Unit:        unit,
				Binding:     binding,
				Measurement: m,
			})
		}
	}

	return results, nil
}
