package flame

import "slices"

// Unresolved is the level recorded for intervals whose ancestry never reaches a root.
const Unresolved = -1

// Resolution maps interval ids to their depth below the root.
type Resolution struct {
	// Levels holds one entry per distinct id. Roots are 0; orphans, cycle
	// members and intervals detached below them are [Unresolved].
	Levels map[string]int

	// MaxLevel is the deepest resolved level (0 when only roots resolve).
	MaxLevel int

	// Diagnostics lists duplicate ids, orphans, cycles and detached intervals.
	Diagnostics []Diagnostic
}

// Level returns the resolved level for id. The boolean is false when id is
// unknown or unresolved.
func (r Resolution) Level(id string) (int, bool) {
	lvl, ok := r.Levels[id]
	if !ok || lvl == Unresolved {
		return Unresolved, false
	}
	return lvl, true
}

// Resolved returns the number of ids with a level.
func (r Resolution) Resolved() int {
	n := 0
	for _, lvl := range r.Levels {
		if lvl != Unresolved {
			n++
		}
	}
	return n
}

// Resolve assigns a level to every interval consistent with its parent chain.
//
// Roots (empty ParentID) are level 0. An interval whose parent id matches no
// interval is an orphan and is marked [Unresolved] immediately. The remaining
// intervals are resolved by repeated passes: any interval whose parent already
// has a level receives the parent's level plus one. Passes stop as soon as one
// makes no progress, and never exceed the number of intervals, so malformed
// input cannot loop forever.
//
// Whatever is left unresolved is classified by following parent ids: members
// of a loop are reported as one [KindCycle] diagnostic per loop, everything
// hanging below an orphan or a loop as a single [KindDetached] diagnostic.
//
// Duplicate ids are tolerated: the last definition wins and a
// [KindDuplicateID] diagnostic is recorded.
//
// Resolve does not modify items. Levels depend only on parent levels, so the
// result is identical for any permutation of the input except for the order
// of diagnostics, which follows input order.
func Resolve(items []Interval) Resolution {
	byID := make(map[string]Interval, len(items))
	order := make([]string, 0, len(items))
	var diags []Diagnostic

	reported := make(map[string]bool)
	for _, iv := range items {
		if _, dup := byID[iv.ID]; dup {
			if !reported[iv.ID] {
				diags = append(diags, duplicateDiagnostic(iv.ID))
				reported[iv.ID] = true
			}
		} else {
			order = append(order, iv.ID)
		}
		byID[iv.ID] = iv
	}

	levels := make(map[string]int, len(order))
	pending := make([]string, 0, len(order))

	for _, id := range order {
		iv := byID[id]
		switch _, parentKnown := byID[iv.ParentID]; {
		case iv.IsRoot():
			levels[id] = 0
		case !parentKnown:
			levels[id] = Unresolved
			diags = append(diags, orphanDiagnostic(id, iv.ParentID))
		default:
			levels[id] = Unresolved
			pending = append(pending, id)
		}
	}

	for pass := 0; pass < len(order) && len(pending) > 0; pass++ {
		next := make([]string, 0, len(pending))
		for _, id := range pending {
			if parent := levels[byID[id].ParentID]; parent != Unresolved {
				levels[id] = parent + 1
				continue
			}
			next = append(next, id)
		}
		progress := len(next) < len(pending)
		pending = next
		if !progress {
			break
		}
	}

	if len(pending) > 0 {
		diags = append(diags, classifyUnresolved(pending, byID)...)
	}

	maxLevel := 0
	for _, lvl := range levels {
		maxLevel = max(maxLevel, lvl)
	}

	return Resolution{Levels: levels, MaxLevel: maxLevel, Diagnostics: diags}
}

// classifyUnresolved splits stalled intervals into loops and the intervals
// hanging below an orphan or a loop. Each pending interval has exactly one
// parent, so following parents from any interval either leaves the pending set
// or enters a loop.
func classifyUnresolved(pending []string, byID map[string]Interval) []Diagnostic {
	const (
		unvisited = iota
		onPath
		done
	)

	isPending := make(map[string]bool, len(pending))
	for _, id := range pending {
		isPending[id] = true
	}

	state := make(map[string]int, len(pending))
	inCycle := make(map[string]bool)
	var diags []Diagnostic

	for _, start := range pending {
		if state[start] != unvisited {
			continue
		}

		var path []string
		pos := make(map[string]int)
		for id := start; isPending[id] && state[id] != done; id = byID[id].ParentID {
			if state[id] == onPath {
				cycle := slices.Clone(path[pos[id]:])
				slices.Sort(cycle)
				for _, c := range cycle {
					inCycle[c] = true
				}
				diags = append(diags, cycleDiagnostic(cycle))
				break
			}
			state[id] = onPath
			pos[id] = len(path)
			path = append(path, id)
		}
		for _, id := range path {
			state[id] = done
		}
	}

	var detached []string
	for _, id := range pending {
		if !inCycle[id] {
			detached = append(detached, id)
		}
	}
	if len(detached) > 0 {
		diags = append(diags, detachedDiagnostic(detached))
	}
	return diags
}
