package bench

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExecutableUnit is one benchmark target: an expr source snippet compiled
// at normalization, or a Go callable invoked via reflection.
type ExecutableUnit struct {
	name    string
	source  string
	program *vm.Program
	fn      reflect.Value
}

// Name returns the unit's display name: a callable's function identifier,
// or a snippet's literal source text.
func (u *ExecutableUnit) Name() string { return u.name }

// IsSnippet reports whether the unit is a source snippet.
func (u *ExecutableUnit) IsSnippet() bool { return u.program != nil }

// TargetSet is the ordered, normalized sequence of benchmark targets.
// It is immutable once constructed.
type TargetSet struct {
	units []*ExecutableUnit
}

// Targets normalizes the caller's targets into a TargetSet. Accepted
// forms are a single snippet string, a single callable, or a slice or
// array of either (mixing snippets and callables is permitted; each
// element keeps its own execution strategy).
//
// Callables receive the binding's positional values as leading arguments
// in declaration order, followed by the named values in declaration
// order.
func Targets(targets any) (*TargetSet, error) {
	if targets == nil {
		return nil, ErrNoTargets
	}

	rv := reflect.ValueOf(targets)

	var elems []any

	switch {
	case rv.Kind() == reflect.String || rv.Kind() == reflect.Func:
		elems = []any{targets}

	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		elems = make([]any, rv.Len())
		for i := range rv.Len() {
			elems[i] = rv.Index(i).Interface()
		}

	default:
		return nil, ErrTargetType.
			With(slog.String("type", rv.Type().String()))
	}

	if len(elems) == 0 {
		return nil, ErrNoTargets
	}

	set := &TargetSet{
		units: make([]*ExecutableUnit, 0, len(elems)),
	}

	for i, e := range elems {
		unit, err := normalizeUnit(e)
		if err != nil {
			return nil, WrapError(err).
				With(slog.Int("position", i))
		}

		set.units = append(set.units, unit)
	}

	return set, nil
}

// normalizeUnit converts one target element into an ExecutableUnit.
func normalizeUnit(target any) (*ExecutableUnit, error) {
	if source, ok := target.(string); ok {
		// Compile without a typed environment so snippets can reference
		// whatever names the current binding and setup provide.
		program, err := expr.Compile(source, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, ErrSnippetCompile.Wrap(err).
				With(slog.String("source", source))
		}

		return &ExecutableUnit{
			name:    source,
			source:  source,
			program: program,
		}, nil
	}

	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		t := "nil"
		if rv.IsValid() {
			t = rv.Type().String()
		}

		return nil, ErrTargetType.
			With(slog.String("type", t))
	}

	return &ExecutableUnit{
		name: funcName(rv),
		fn:   rv,
	}, nil
}

// Units returns the normalized units in declaration order.
func (t *TargetSet) Units() []*ExecutableUnit { return t.units }

// Len returns the number of units.
func (t *TargetSet) Len() int { return len(t.units) }

// hasSnippet reports whether any unit is a source snippet.
func (t *TargetSet) hasSnippet() bool {
	for _, u := range t.units {
		if u.IsSnippet() {
			return true
		}
	}

	return false
}

// funcName derives a display name from a callable's declared identifier.
func funcName(fn reflect.Value) string {
	name := ""
	if pc := runtime.FuncForPC(fn.Pointer()); pc != nil {
		name = pc.Name()
	}

	if name == "" {
		return fn.Type().String()
	}

	// Trim the package path, keeping "Type.Method" style qualifiers.
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}

	return strings.TrimSuffix(name, "-fm")
}

// ValueString renders a parameter value for binding keys and display.
// Functions render as their identifier, other values via fmt.
func ValueString(v any) string {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Func && !rv.IsNil() {
		return funcName(rv)
	}

	return fmt.Sprintf("%v", v)
}
