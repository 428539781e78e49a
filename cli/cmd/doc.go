// Package cmd implements the benchtab subcommands: run, which loads a
// suite from a YAML file or inline flags and renders the measured grid
// as a table, and version.
package cmd
