// Package bench measures execution time, and optionally process memory
// delta, for every combination of parameter values crossed with every
// benchmark target.
//
// A target is either an expr source snippet, evaluated in an environment
// seeded with the current parameter binding, or any Go function, invoked
// with the binding's values as arguments. Parameters supplied as slices,
// arrays, [Range] values, or lazy sequences are iterated; everything else
// (including strings and maps) is held fixed across the whole grid.
//
// Execution is strictly sequential: one grid cell at a time, on a single
// goroutine, so that timing and memory sampling are not perturbed by
// scheduler contention.
package bench
