package bench

import (
	"log/slog"
	"time"
)

// Default measurement configuration.
const (
	// DefaultRepeat is the number of times each cell's timing is repeated.
	DefaultRepeat = 3
	// DefaultMaxLoop caps the iteration count chosen by calibration.
	DefaultMaxLoop = 100
	// DefaultMinTime is the calibration floor: the loop count grows until
	// one trial's total duration reaches this value.
	DefaultMinTime = 100 * time.Millisecond
)

// config holds the measurement options for one Run call.
type config struct {
	setup   string
	repeat  int
	maxloop int
	minTime time.Duration
	memory  bool
}

// Option applies a configuration option to config.
type Option func(config) config

// apply applies multiple options to a config.
func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() config {
	return config{
		repeat:  DefaultRepeat,
		maxloop: DefaultMaxLoop,
		minTime: DefaultMinTime,
	}
}

// validate reports the first configuration error, if any.
func (c config) validate() error {
	if c.repeat < 1 {
		return ErrRepeatCount.
			With(slog.Int("repeat", c.repeat))
	}

	if c.maxloop < 1 {
		return ErrMaxLoop.
			With(slog.Int("maxloop", c.maxloop))
	}

	return nil
}

// WithSetup returns a functional option that sets the setup source
// evaluated once per binding before timing begins. If the setup evaluates
// to a map, its entries are merged into the snippet environment.
func WithSetup(source string) Option {
	return func(c config) config {
		c.setup = source

		return c
	}
}

// WithRepeat returns a functional option that sets the number of timing
// repetitions per cell. The reported elapsed time is the minimum across
// repetitions.
func WithRepeat(n int) Option {
	return func(c config) config {
		c.repeat = n

		return c
	}
}

// WithMaxLoop returns a functional option that caps the per-repetition
// iteration count chosen by calibration.
func WithMaxLoop(n int) Option {
	return func(c config) config {
		c.maxloop = n

		return c
	}
}

// WithMinTime returns a functional option that sets the calibration floor.
// Values that are not positive restore [DefaultMinTime].
func WithMinTime(d time.Duration) Option {
	return func(c config) config {
		if d <= 0 {
			d = DefaultMinTime
		}

		c.minTime = d

		return c
	}
}

// WithMemory returns a functional option that enables process memory
// sampling around each cell's timed phase. Sampling is silently disabled
// for the whole run if the host does not expose per-process memory usage.
func WithMemory(enable bool) Option {
	return func(c config) config {
		c.memory = enable

		return c
	}
}
