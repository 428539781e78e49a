package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ardnew/benchtab/pkg"
)

// Version prints the package name and version.
type Version struct{}

// Run executes the version command.
func (Version) Run(context.Context) error {
	_, err := fmt.Println(pkg.Name, strings.TrimSpace(pkg.Version))

	return err
}
