// Package report renders a [bench.ResultSet] as an aligned text table:
// one row per grid cell, one column per iterated parameter, with
// durations scaled to the unit (ns, us, ms, s) that fits their
// magnitude.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/benchtab/bench"
)

// DefaultNameWidth is the display width snippets are truncated to.
const DefaultNameWidth = 24

// config holds the rendering options for one Table call.
type config struct {
	nameWidth int
	verbose   bool
	color     bool
}

// Option applies a rendering option to config.
type Option func(config) config

// apply applies multiple options to a config.
func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// WithVerbose returns a functional option that adds loop and repeat
// counts to each row ("N loops, best of K").
func WithVerbose(enable bool) Option {
	return func(c config) config {
		c.verbose = enable

		return c
	}
}

// WithColor returns a functional option that toggles ANSI styling.
func WithColor(enable bool) Option {
	return func(c config) config {
		c.color = enable

		return c
	}
}

// WithNameWidth returns a functional option that sets the display width
// unit names are truncated to. Values below 4 restore the default.
func WithNameWidth(width int) Option {
	return func(c config) config {
		if width < 4 {
			width = DefaultNameWidth
		}

		c.nameWidth = width

		return c
	}
}

// Scale converts a duration to a display value and the unit that fits
// its magnitude.
func Scale(d time.Duration) (float64, string) {
	usec := float64(d) / float64(time.Microsecond)

	switch {
	case usec < 1:
		return usec * 1000, "ns"

	case usec < 1000:
		return usec, "us"

	case usec < 1000000:
		return usec / 1000, "ms"

	default:
		return usec / 1000000, "s"
	}
}

// DisplayName collapses a unit name to one line and truncates it to the
// given width with an ellipsis marker.
func DisplayName(name string, width int) string {
	name = strings.Join(strings.Fields(name), " ")

	if width > 0 && len(name) > width {
		return name[:width] + "..."
	}

	return name
}

// Table writes one aligned row per cell of the result set. The unit
// column appears only when multiple targets were benchmarked; iterated
// parameters each get a column padded to their widest value; fixed
// parameters are constant across the grid and are omitted, matching the
// row labels the measurements were keyed with.
func Table(w io.Writer, results *bench.ResultSet, opts ...Option) error {
	cfg := apply(config{nameWidth: DefaultNameWidth}, opts...)

	cells := results.Cells()
	if len(cells) == 0 {
		return nil
	}

	style := makeStyles(cfg.color)

	showUnit := len(results.Units()) > 1

	nameWidth, fieldWidths := columnWidths(cells, cfg.nameWidth)

	for _, cell := range cells {
		var row strings.Builder

		if showUnit {
			name := DisplayName(cell.Unit.Name(), cfg.nameWidth)
			row.WriteString(style.name.Render(pad(name, nameWidth)))
			row.WriteString(": ")
		}

		for i, f := range iterated(cell.Binding.Fields()) {
			if i > 0 {
				row.WriteByte(' ')
			}

			row.WriteString(pad(f.String(), fieldWidths[i]))
		}

		if row.Len() > 0 {
			row.WriteByte(' ')
		}

		m := cell.Measurement
		if m.Failed() {
			row.WriteString(style.fail.Render("error: " + m.Err.Error()))
		} else {
			row.WriteString(measurementText(m, cfg.verbose))
		}

		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}

	return nil
}

// measurementText formats one successful measurement.
func measurementText(m bench.Measurement, verbose bool) string {
	value, unit := Scale(m.Elapsed)

	text := fmt.Sprintf("%6.2f %s", value, unit)
	if verbose {
		text = fmt.Sprintf(
			"%d loops, best of %d: %s per loop",
			m.Loops, m.Repeats, text,
		)
	}

	if m.Memory != nil {
		text += fmt.Sprintf(
			". RSS:%+.1fMiB VMS:%+.1fMiB Data:%+.1fMiB",
			mib(m.Memory.RSS), mib(m.Memory.VMS), mib(m.Memory.Data),
		)
	}

	return text
}

// mib converts a byte delta to mebibytes.
func mib(bytes int64) float64 {
	return float64(bytes) / (1 << 20)
}

// iterated filters a binding's fields down to the iterated ones.
func iterated(fields []bench.Field) []bench.Field {
	out := fields[:0:0]

	for _, f := range fields {
		if f.Iterated {
			out = append(out, f)
		}
	}

	return out
}

// columnWidths computes the padded width of the unit column and of each
// iterated parameter column across all cells.
func columnWidths(cells []bench.Cell, nameWidth int) (int, []int) {
	unit := 0

	var fields []int

	for _, cell := range cells {
		if n := len(DisplayName(cell.Unit.Name(), nameWidth)); n > unit {
			unit = n
		}

		for i, f := range iterated(cell.Binding.Fields()) {
			if i == len(fields) {
				fields = append(fields, 0)
			}

			if n := len(f.String()); n > fields[i] {
				fields[i] = n
			}
		}
	}

	return unit, fields
}

// pad right-pads s with spaces to the given width.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}

	return s + strings.Repeat(" ", width-len(s))
}

// styles holds the lipgloss styles used for rendering.
type styles struct {
	name lipgloss.Style
	fail lipgloss.Style
}

// makeStyles returns the configured styles; without color every style is
// a no-op passthrough.
func makeStyles(color bool) styles {
	if !color {
		return styles{
			name: lipgloss.NewStyle(),
			fail: lipgloss.NewStyle(),
		}
	}

	return styles{
		name: lipgloss.NewStyle().Faint(true),
		fail: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}
