package bench

import (
	"iter"
	"log/slog"
	"reflect"
	"strings"
)

// Parameter declares one benchmark input by name, or positionally when
// the name is empty. Whether it is iterated or fixed is decided by
// [Classify] from the runtime type of its value.
type Parameter struct {
	name  string
	value any
}

// P declares a named parameter. Named values are visible to snippets
// under their name and are passed to callables after all positional
// values, in declaration order.
func P(name string, value any) Parameter {
	return Parameter{name: name, value: value}
}

// Pos declares a positional parameter. Positional values are passed to
// callables as leading arguments in declaration order; they cannot be
// referenced from snippets.
func Pos(value any) Parameter {
	return Parameter{value: value}
}

// Seq declares an iterated parameter from a lazily produced sequence.
// The sequence is materialized once at classification so grid traversal
// stays restartable.
type Seq = iter.Seq[any]

// Range is an iterated integer sequence [Start, Stop) advancing by Step.
// A Step that is not positive is treated as 1.
type Range struct {
	Start, Stop, Step int
}

// expand materializes the range values.
func (r Range) expand() []any {
	step := r.Step
	if step < 1 {
		step = 1
	}

	var values []any
	for i := r.Start; i < r.Stop; i += step {
		values = append(values, i)
	}

	return values
}

// param is one classified parameter. Iterated parameters hold their full
// value sequence; fixed parameters hold a single element.
type param struct {
	name     string
	values   []any
	iterated bool
}

// ParameterSpace is the classified set of declared parameters and the
// source of their cartesian product. It is immutable once constructed.
type ParameterSpace struct {
	params     []param
	positional int
}

// Classify validates the declared parameters and splits them into
// iterated and fixed. A parameter is iterated iff its value is a slice,
// an array, a [Range], or a [Seq] (materialized once here so that
// traversal is restartable). Strings and maps are always fixed, even
// though they are iterable, so a string is never exploded into a grid of
// characters. Values the classifier cannot resolve (nil, channels) are a
// configuration error.
func Classify(params ...Parameter) (*ParameterSpace, error) {
	space := &ParameterSpace{
		params: make([]param, 0, len(params)),
	}

	for i, p := range params {
		values, iterated, err := classifyValue(p.value)
		if err != nil {
			return nil, WrapError(err).
				With(
					slog.Int("position", i),
					slog.String("name", p.name),
				)
		}

		if p.name == "" {
			space.positional++
		}

		space.params = append(space.params, param{
			name:     p.name,
			values:   values,
			iterated: iterated,
		})
	}

	return space, nil
}

// classifyValue resolves one declared value into its sequence form.
func classifyValue(value any) ([]any, bool, error) {
	switch v := value.(type) {
	case Range:
		return v.expand(), true, nil

	case Seq:
		var values []any
		for e := range v {
			values = append(values, e)
		}

		return values, true, nil

	case string:
		// Strings are sequences of runes, but iterating one is never
		// what a caller wants from a benchmark grid.
		return []any{v}, false, nil

	case nil:
		return nil, false, ErrParameterType.
			With(slog.String("type", "nil"))
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]any, rv.Len())
		for i := range rv.Len() {
			values[i] = rv.Index(i).Interface()
		}

		return values, true, nil

	case reflect.Chan:
		return nil, false, ErrParameterType.
			With(slog.String("type", rv.Type().String()))

	default:
		// Maps and every remaining scalar kind are fixed.
		return []any{value}, false, nil
	}
}

// Size returns the number of bindings the space produces: the product of
// every iterated parameter's length. A space with no iterated parameters
// has size 1; any empty iterated parameter collapses the grid to 0.
func (s *ParameterSpace) Size() int {
	size := 1
	for _, p := range s.params {
		size *= len(p.values)
	}

	return size
}

// Bindings returns a finite, restartable sequence of every parameter
// combination. Bindings are produced in lexicographic order of the
// declared parameter list with the last-declared iterated parameter
// varying fastest; this ordering determines result row order.
func (s *ParameterSpace) Bindings() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		if s.Size() == 0 {
			return
		}

		index := make([]int, len(s.params))

		for {
			values := make([]any, len(s.params))
			for i, p := range s.params {
				values[i] = p.values[index[i]]
			}

			if !yield(Binding{params: s.params, values: values}) {
				return
			}

			// Advance the odometer, last position first.
			i := len(index) - 1
			for ; i >= 0; i-- {
				index[i]++
				if index[i] < len(s.params[i].values) {
					break
				}

				index[i] = 0
			}

			if i < 0 {
				return
			}
		}
	}
}

// Binding is one fully resolved assignment of a concrete value to every
// declared parameter. Bindings are immutable value objects.
type Binding struct {
	params []param
	values []any
}

// Len returns the number of declared parameters.
func (b Binding) Len() int { return len(b.values) }

// Value returns the bound value of the named parameter.
func (b Binding) Value(name string) (any, bool) {
	for i, p := range b.params {
		if p.name != "" && p.name == name {
			return b.values[i], true
		}
	}

	return nil, false
}

// Env returns a fresh map of the named parameter values, suitable for
// seeding a snippet evaluation environment.
func (b Binding) Env() map[string]any {
	env := make(map[string]any, len(b.values))

	for i, p := range b.params {
		if p.name != "" {
			env[p.name] = b.values[i]
		}
	}

	return env
}

// Args returns the bound values in callable-argument order: positional
// parameters first, then named parameters, each in declaration order.
func (b Binding) Args() []any {
	args := make([]any, 0, len(b.values))

	for i, p := range b.params {
		if p.name == "" {
			args = append(args, b.values[i])
		}
	}

	for i, p := range b.params {
		if p.name != "" {
			args = append(args, b.values[i])
		}
	}

	return args
}

// Field is one bound parameter as exposed to result consumers.
type Field struct {
	Name     string
	Value    any
	Iterated bool
}

// String renders the field as "name=value", or the bare value for
// positional parameters.
func (f Field) String() string {
	if f.Name == "" {
		return ValueString(f.Value)
	}

	return f.Name + "=" + ValueString(f.Value)
}

// Fields returns every bound parameter in declaration order.
func (b Binding) Fields() []Field {
	fields := make([]Field, len(b.values))

	for i, p := range b.params {
		fields[i] = Field{
			Name:     p.name,
			Value:    b.values[i],
			Iterated: p.iterated,
		}
	}

	return fields
}

// Key returns the canonical representation of the binding: every field
// in declaration order, space-separated.
func (b Binding) Key() string {
	parts := make([]string, len(b.values))
	for i, f := range b.Fields() {
		parts[i] = f.String()
	}

	return strings.Join(parts, " ")
}

// String implements fmt.Stringer.
func (b Binding) String() string { return b.Key() }
