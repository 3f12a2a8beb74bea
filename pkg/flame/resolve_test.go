package flame

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func iv(id, parent string, start, end float64) Interval {
	return Interval{ID: id, Label: id, ParentID: parent, Start: start, End: end}
}

func TestResolveLevels(t *testing.T) {
	tests := []struct {
		name  string
		items []Interval
		want  map[string]int
		max   int
	}{
		{
			name:  "single root",
			items: []Interval{iv("root", "", 0, 10)},
			want:  map[string]int{"root": 0},
			max:   0,
		},
		{
			name: "two children",
			items: []Interval{
				iv("root", "", 0, 100),
				iv("a", "root", 0, 50),
				iv("b", "root", 50, 100),
			},
			want: map[string]int{"root": 0, "a": 1, "b": 1},
			max:  1,
		},
		{
			name: "chain listed leaf first",
			items: []Interval{
				iv("d", "c", 0, 1),
				iv("c", "b", 0, 2),
				iv("b", "a", 0, 3),
				iv("a", "", 0, 4),
			},
			want: map[string]int{"a": 0, "b": 1, "c": 2, "d": 3},
			max:  3,
		},
		{
			name: "orphan",
			items: []Interval{
				iv("root", "", 0, 100),
				iv("a", "missing", 0, 50),
				iv("b", "root", 50, 100),
			},
			want: map[string]int{"root": 0, "a": Unresolved, "b": 1},
			max:  1,
		},
		{
			name: "cycle beside tree",
			items: []Interval{
				iv("root", "", 0, 100),
				iv("x", "y", 0, 10),
				iv("y", "x", 0, 10),
				iv("c", "root", 0, 10),
			},
			want: map[string]int{"root": 0, "x": Unresolved, "y": Unresolved, "c": 1},
			max:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.items)
			if diff := cmp.Diff(tt.want, res.Levels); diff != "" {
				t.Errorf("Resolve() levels mismatch (-want +got):\n%s", diff)
			}
			if res.MaxLevel != tt.max {
				t.Errorf("MaxLevel = %d, want %d", res.MaxLevel, tt.max)
			}
		})
	}
}

func TestResolveDiagnostics(t *testing.T) {
	items := []Interval{
		iv("root", "", 0, 100),
		iv("o", "missing", 0, 10),
		iv("under-o", "o", 0, 5),
		iv("x", "y", 0, 10),
		iv("y", "x", 0, 10),
		iv("under-x", "x", 0, 5),
	}
	res := Resolve(items)

	want := []Diagnostic{
		orphanDiagnostic("o", "missing"),
		cycleDiagnostic([]string{"x", "y"}),
		detachedDiagnostic([]string{"under-o", "under-x"}),
	}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("Resolve() diagnostics mismatch (-want +got):\n%s", diff)
	}
	if got := res.Resolved(); got != 1 {
		t.Errorf("Resolved() = %d, want 1", got)
	}
}

func TestResolveSelfParent(t *testing.T) {
	res := Resolve([]Interval{iv("root", "", 0, 1), iv("s", "s", 0, 1)})
	if _, ok := res.Level("s"); ok {
		t.Error("Level(s) resolved, want unresolved")
	}
	if got := CountKind(res.Diagnostics, KindCycle); got != 1 {
		t.Errorf("cycle diagnostics = %d, want 1", got)
	}
}

func TestResolveTwoCycles(t *testing.T) {
	res := Resolve([]Interval{
		iv("root", "", 0, 1),
		iv("a", "b", 0, 1),
		iv("b", "a", 0, 1),
		iv("c", "d", 0, 1),
		iv("d", "e", 0, 1),
		iv("e", "c", 0, 1),
	})
	if got := CountKind(res.Diagnostics, KindCycle); got != 2 {
		t.Fatalf("cycle diagnostics = %d, want 2", got)
	}
	if got := CountKind(res.Diagnostics, KindDetached); got != 0 {
		t.Errorf("detached diagnostics = %d, want 0", got)
	}
}

func TestResolveDuplicateLastWins(t *testing.T) {
	res := Resolve([]Interval{
		iv("root", "", 0, 100),
		iv("a", "root", 0, 10),
		iv("b", "a", 0, 5),
		iv("a", "b", 0, 10),
		iv("a", "root", 0, 10),
	})
	if lvl, ok := res.Level("b"); !ok || lvl != 2 {
		t.Errorf("Level(b) = %d, %v, want 2, true", lvl, ok)
	}
	if got := CountKind(res.Diagnostics, KindDuplicateID); got != 1 {
		t.Errorf("duplicate diagnostics = %d, want 1", got)
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	items := []Interval{
		iv("root", "", 0, 100),
		iv("a", "root", 0, 50),
		iv("b", "root", 50, 100),
		iv("a1", "a", 0, 25),
		iv("a2", "a1", 0, 10),
		iv("b1", "b", 50, 70),
		iv("o", "nope", 0, 1),
	}
	want := Resolve(items).Levels

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Interval(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if diff := cmp.Diff(want, Resolve(shuffled).Levels); diff != "" {
			t.Fatalf("levels depend on order (-want +got):\n%s", diff)
		}
	}
}

func TestResolveLongChainTerminates(t *testing.T) {
	const n = 500
	items := make([]Interval, 0, n)
	// Listed deepest first so every pass resolves exactly one interval.
	for i := n - 1; i > 0; i-- {
		items = append(items, iv("n"+strconv.Itoa(i), "n"+strconv.Itoa(i-1), 0, 1))
	}
	items = append(items, iv("n0", "", 0, 1))

	res := Resolve(items)
	if res.MaxLevel != n-1 {
		t.Errorf("MaxLevel = %d, want %d", res.MaxLevel, n-1)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", res.Diagnostics)
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	items := []Interval{iv("root", "", 0, 1), iv("a", "root", 0, 1), iv("a", "x", 0, 1)}
	before := append([]Interval(nil), items...)
	Resolve(items)
	if diff := cmp.Diff(before, items); diff != "" {
		t.Errorf("Resolve() mutated input (-before +after):\n%s", diff)
	}
}
