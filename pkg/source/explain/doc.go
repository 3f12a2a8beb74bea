// Package explain converts PostgreSQL EXPLAIN output into flame graph intervals.
//
// Input is the output of EXPLAIN (FORMAT JSON) or EXPLAIN (ANALYZE, FORMAT
// JSON), either the one-element array PostgreSQL prints or the bare object.
// Every plan node becomes one interval:
//
//   - ids follow the plan path: "root", "root-0", "root-0-1", ...
//   - labels are the node type plus the scanned relation, e.g.
//     "Seq Scan on orders o"
//   - widths are inclusive time (Actual Total Time x Actual Loops, divided
//     across parallel workers below a Gather) or inclusive Total Cost
//
// Children are packed left to right from their parent's start. When the
// children's widths add up to more than the parent's (common with cost, and
// with loops under nested joins) they are scaled down to fit.
//
// With [WithHints], nodes whose exclusive time or cost stands out get a
// [Hint] and a color override so hotspots are visible regardless of the
// color mode.
package explain
