package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/benchtab/bench"
)

// writeSuite writes a suite file into a test temp dir.
func writeSuite(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "suite.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

// TestLoadSuite tests decoding of every suite field.
func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, `
targets:
  - "n + 1"
  - "n * 2"
setup: "{data: ints(n)}"
params:
  - name: n
    values: [100, 10000]
  - name: mode
    value: fast
repeat: 5
maxloop: 1000
mintime: 250ms
memory: true
`)

	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(suite.Targets) != 2 {
		t.Errorf("targets = %d, want 2", len(suite.Targets))
	}

	if suite.Setup == "" {
		t.Error("setup not decoded")
	}

	if suite.Repeat != 5 || suite.MaxLoop != 1000 || !suite.Memory {
		t.Errorf("policy = %+v", suite)
	}

	d, err := suite.minTime()
	if err != nil {
		t.Fatal(err)
	}

	if d != 250*time.Millisecond {
		t.Errorf("mintime = %v, want 250ms", d)
	}
}

// TestSuiteParameters tests conversion into the bench parameter forms,
// preserving declaration order.
func TestSuiteParameters(t *testing.T) {
	path := writeSuite(t, `
targets: ["n"]
params:
  - name: size
    range: {start: 0, stop: 30, step: 10}
  - name: n
    values: [1, 2]
  - name: label
    value: fixed
`)

	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}

	space, err := bench.Classify(suite.parameters()...)
	if err != nil {
		t.Fatal(err)
	}

	// range expands to 3 values, the list holds 2, the scalar is fixed.
	if got := space.Size(); got != 6 {
		t.Errorf("Size() = %d, want 6", got)
	}

	var keys []string
	for b := range space.Bindings() {
		keys = append(keys, b.Key())
	}

	if keys[0] != "size=0 n=1 label=fixed" {
		t.Errorf("first binding = %q", keys[0])
	}

	if keys[1] != "size=0 n=2 label=fixed" {
		t.Errorf("second binding = %q, want n varying fastest", keys[1])
	}
}

// TestLoadSuiteErrors tests the failure paths.
func TestLoadSuiteErrors(t *testing.T) {
	if _, err := LoadSuite(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("LoadSuite accepted a missing file")
	}

	path := writeSuite(t, "targets: [unterminated\n")
	if _, err := LoadSuite(path); err == nil {
		t.Error("LoadSuite accepted malformed YAML")
	}
}

// TestSuiteMinTimeEmpty tests that an absent mintime leaves zero for the
// caller's default.
func TestSuiteMinTimeEmpty(t *testing.T) {
	var suite Suite

	d, err := suite.minTime()
	if err != nil {
		t.Fatal(err)
	}

	if d != 0 {
		t.Errorf("minTime() = %v, want 0", d)
	}
}

// TestSuiteMinTimeInvalid tests rejection of a malformed duration.
func TestSuiteMinTimeInvalid(t *testing.T) {
	suite := Suite{MinTime: "fast"}

	if _, err := suite.minTime(); err == nil {
		t.Error("minTime() accepted a malformed duration")
	}
}
