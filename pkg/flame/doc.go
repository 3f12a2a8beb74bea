// Package flame computes flame-graph layouts from flat interval collections.
//
// # Overview
//
// A flame graph is a stack of rectangles: each rectangle covers a span of a
// shared horizontal axis (time, samples, cost) and sits one row above its
// parent. Callers describe the graph as a flat list of [Interval] values that
// reference their parent by id. This package turns that list into drawable
// rectangles in three steps:
//
//  1. [Resolve] assigns every interval a level (its depth below the root),
//     detecting orphans, cycles and intervals detached below them.
//  2. [Palette.Color] maps each resolved interval to one of nine gradient
//     bands, keyed on depth ([ColorModePeaks]) or span ([ColorModeWidth]).
//  3. [Build] validates the root invariant and emits a [Layout] of [Rect]
//     values in input order, ready for any drawing surface.
//
// # Errors
//
// A collection without exactly one root is rejected: [Build] returns a layout
// whose [Validation] is invalid and whose rectangle list is empty. Orphans,
// cycles, duplicate ids and inverted bounds are non-blocking; the affected
// intervals are dropped, the rest of the tree still renders, and each anomaly
// is reported as a [Diagnostic] (and logged as a warning when a logger is
// configured with [WithLogger]).
//
// # Concurrency
//
// Every function in this package is pure. Nothing is cached between calls and
// caller-supplied slices are never modified, so independent callers may build
// layouts concurrently.
//
// # Basic Usage
//
//	items := []flame.Interval{
//	    {ID: "root", Label: "main", Start: 0, End: 100},
//	    {ID: "a", Label: "parse", Start: 0, End: 50, ParentID: "root"},
//	    {ID: "b", Label: "render", Start: 50, End: 100, ParentID: "root"},
//	}
//	l := flame.Build(items, flame.WithColorMode(flame.ColorModePeaks))
//	if !l.Valid() {
//	    fmt.Println(l.Validation.Message)
//	}
//	for _, r := range l.Rects {
//	    fmt.Println(r.Level, r.Label, r.Color)
//	}
package flame
