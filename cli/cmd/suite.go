package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/benchtab/bench"
)

// Suite is the YAML schema of a benchmark suite file.
//
// Targets are expression snippets evaluated against each parameter
// combination. Parameters appear in declaration order; each entry
// supplies either a single fixed value, an explicit value list, or an
// integer range, mirroring the [bench.Parameter] forms.
type Suite struct {
	Targets []string     `yaml:"targets"`
	Setup   string       `yaml:"setup"`
	Params  []SuiteParam `yaml:"params"`
	Repeat  int          `yaml:"repeat"`
	MaxLoop int          `yaml:"maxloop"`
	MinTime string       `yaml:"mintime"`
	Memory  bool         `yaml:"memory"`
}

// SuiteParam is one parameter entry of a suite file. Exactly one of
// Value, Values, or Range should be set; Values wins over Value, and
// Range wins over both.
type SuiteParam struct {
	Name   string      `yaml:"name"`
	Value  any         `yaml:"value"`
	Values []any       `yaml:"values"`
	Range  *SuiteRange `yaml:"range"`
}

// SuiteRange is the YAML form of [bench.Range].
type SuiteRange struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

// LoadSuite reads and decodes a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bench.WrapError(err).
			With(slog.String("suite", path))
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, bench.WrapError(err).
			With(slog.String("suite", path))
	}

	return &suite, nil
}

// parameters converts the suite's parameter entries to the bench forms,
// preserving declaration order.
func (s *Suite) parameters() []bench.Parameter {
	params := make([]bench.Parameter, 0, len(s.Params))

	for _, p := range s.Params {
		switch {
		case p.Range != nil:
			params = append(params, bench.P(p.Name, bench.Range{
				Start: p.Range.Start,
				Stop:  p.Range.Stop,
				Step:  p.Range.Step,
			}))

		case p.Values != nil:
			params = append(params, bench.P(p.Name, p.Values))

		default:
			params = append(params, bench.P(p.Name, p.Value))
		}
	}

	return params
}

// minTime parses the suite's mintime field. An empty field yields zero,
// which leaves the caller's default in place.
func (s *Suite) minTime() (time.Duration, error) {
	if s.MinTime == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s.MinTime)
	if err != nil {
		return 0, bench.WrapError(err).
			With(slog.String("mintime", s.MinTime))
	}

	return d, nil
}
