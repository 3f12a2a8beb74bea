// Package storage persists interval documents for the HTTP API.
//
// A stored [Graph] is an interval document plus an id and a name. Layouts are
// never stored: they are recomputed from the document on every request, so
// the saved graph is the only state.
//
// Backends:
//   - [MemoryStore]: process-local, for tests and single-instance servers
//   - [FileStore]: one JSON file per graph, for local servers
//   - [MongoStore]: MongoDB collection, for shared deployments
//
// Ids are UUIDs generated by [NewID]. Lookups of unknown ids fail with
// GRAPH_NOT_FOUND; malformed ids fail with INVALID_ID.
package storage

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 100

// Graph is a stored interval document.
type Graph struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Document  fio.Document `json:"document"`
	CreatedAt time.Time    `json:"created_at"`
}

// Summary describes a stored graph without its intervals.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Title     string    `json:"title,omitempty"`
	Intervals int       `json:"intervals"`
	CreatedAt time.Time `json:"created_at"`
}

// Summarize returns the summary of g.
func (g *Graph) Summarize() Summary {
	return Summary{
		ID:        g.ID,
		Name:      g.Name,
		Title:     g.Document.Title,
		Intervals: len(g.Document.Intervals),
		CreatedAt: g.CreatedAt,
	}
}

// Store is the interface for graph storage backends.
type Store interface {
	// Save stores g, replacing any graph with the same id. An empty id is
	// filled with [NewID] and a zero CreatedAt with the current time.
	Save(ctx context.Context, g *Graph) error

	// Get retrieves a graph by id.
	Get(ctx context.Context, id string) (*Graph, error)

	// Delete removes a graph. Deleting an unknown id is GRAPH_NOT_FOUND.
	Delete(ctx context.Context, id string) error

	// List returns summaries, newest first. limit <= 0 means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// NewID returns a random graph id.
func NewID() string {
	return uuid.NewString()
}

// ValidateID checks that id is a UUID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidID, err, "invalid graph id %q", id)
	}
	return nil
}

// prepare fills the id and timestamp of g. Timestamps are UTC with
// millisecond precision so every backend returns what it was given.
func prepare(g *Graph) error {
	if g.ID == "" {
		g.ID = NewID()
	} else if err := ValidateID(g.ID); err != nil {
		return err
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	g.CreatedAt = g.CreatedAt.UTC().Truncate(time.Millisecond)
	if g.Document.Intervals == nil {
		g.Document.Intervals = []flame.Interval{}
	}
	return nil
}

func notFound(id string) error {
	return errs.New(errs.ErrCodeGraphNotFound, "graph %s not found", id)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// clone returns a deep copy of g so callers cannot alias stored intervals.
func clone(g *Graph) *Graph {
	c := *g
	c.Document.Intervals = slices.Clone(g.Document.Intervals)
	if c.Document.Intervals == nil {
		c.Document.Intervals = []flame.Interval{}
	}
	return &c
}
