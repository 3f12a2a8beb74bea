package flame

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// DiagnosticKind classifies a non-blocking anomaly found while building a layout.
type DiagnosticKind string

const (
	// KindOrphan marks an interval whose parent id does not exist.
	KindOrphan DiagnosticKind = "orphan"
	// KindCycle marks a set of intervals whose parent chain loops.
	KindCycle DiagnosticKind = "cycle"
	// KindDetached marks intervals that hang below an orphan or a cycle.
	KindDetached DiagnosticKind = "detached"
	// KindDuplicateID marks an id defined more than once; the last definition wins.
	KindDuplicateID DiagnosticKind = "duplicate_id"
	// KindInvalidBounds marks an interval whose end lies before its start.
	KindInvalidBounds DiagnosticKind = "invalid_bounds"
)

// Diagnostic describes intervals that were excluded from a layout.
// IDs lists every affected interval; for cycles it is sorted.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	IDs     []string       `json:"ids"`
	Message string         `json:"message"`
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

func orphanDiagnostic(id, parent string) Diagnostic {
	return Diagnostic{
		Kind:    KindOrphan,
		IDs:     []string{id},
		Message: fmt.Sprintf("interval %q references missing parent %q", id, parent),
	}
}

func cycleDiagnostic(ids []string) Diagnostic {
	return Diagnostic{
		Kind:    KindCycle,
		IDs:     ids,
		Message: "intervals form a parent cycle: " + strings.Join(ids, ", "),
	}
}

func detachedDiagnostic(ids []string) Diagnostic {
	return Diagnostic{
		Kind:    KindDetached,
		IDs:     ids,
		Message: "intervals are detached from the root: " + strings.Join(ids, ", "),
	}
}

func duplicateDiagnostic(id string) Diagnostic {
	return Diagnostic{
		Kind:    KindDuplicateID,
		IDs:     []string{id},
		Message: fmt.Sprintf("duplicate interval id %q (last definition wins)", id),
	}
}

func invalidBoundsDiagnostic(iv Interval) Diagnostic {
	return Diagnostic{
		Kind:    KindInvalidBounds,
		IDs:     []string{iv.ID},
		Message: fmt.Sprintf("interval %q ends at %g before its start %g", iv.ID, iv.End, iv.Start),
	}
}

// CountKind returns how many diagnostics of the given kind are in ds.
func CountKind(ds []Diagnostic, kind DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// LogDiagnostics writes one warning per diagnostic to logger. A nil logger is
// a no-op.
func LogDiagnostics(logger *log.Logger, ds []Diagnostic) {
	if logger == nil {
		return
	}
	for _, d := range ds {
		logger.Warn(d.Message, "kind", d.Kind, "ids", strings.Join(d.IDs, ","))
	}
}
