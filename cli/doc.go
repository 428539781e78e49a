// Package cli implements the benchtab command-line interface: flag
// parsing, logger configuration, optional profiling, and dispatch to
// the subcommands in [github.com/ardnew/benchtab/cli/cmd].
package cli
