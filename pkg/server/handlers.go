package server

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/render"
	"github.com/matzehuels/flametower/pkg/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Stateless Endpoints
// =============================================================================

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), doc, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !l.Valid() {
		writeInvalid(w, l)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderDocument(w, r, doc, "")
}

// =============================================================================
// Saved Graphs
// =============================================================================

type createGraphRequest struct {
	Name     string          `json:"name"`
	Document json.RawMessage `json:"document"`
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		s.writeError(w, r, bodyError(err))
		return
	}
	if len(req.Document) == 0 {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "document is required"))
		return
	}
	doc, err := fio.Decode(req.Document, fio.FormatJSON)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name != "" {
		if err := errs.ValidatePath(req.Name); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if v := flame.Validate(doc.Intervals); !v.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{Message: v.Message, Roots: v.Roots})
		return
	}

	g := &storage.Graph{Name: req.Name, Document: *doc}
	if err := s.store.Save(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/graphs/"+g.ID)
	writeJSON(w, http.StatusCreated, g.Summarize())
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "limit must be a non-negative integer, got %q", v))
			return
		}
		limit = n
	}
	graphs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if graphs == nil {
		graphs = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenderGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := g.Name
	if name == "" {
		name = g.ID
	}
	s.renderDocument(w, r, &g.Document, name)
}

// =============================================================================
// Helpers
// =============================================================================

// renderDocument lays out doc and writes it in the requested format. A
// non-empty name adds a Content-Disposition filename.
func (s *Server) renderDocument(w http.ResponseWriter, r *http.Request, doc *fio.Document, name string) {
	q := r.URL.Query()
	format, err := render.ParseFormat(cmp.Or(q.Get("format"), string(render.FormatSVG)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{string(format)}
	if opts.Title == "" {
		opts.Title = doc.Title
	}

	l, err := s.runner.Layout(r.Context(), doc, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !l.Valid() {
		writeInvalid(w, l)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), l, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+format.Extension()))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[string(format)])
}

// readDocument decodes the request body in the encoding named by its
// Content-Type. JSON is assumed when none is given.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (*fio.Document, error) {
	format, err := bodyFormat(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, bodyError(err)
	}
	return fio.Decode(data, format)
}

func bodyFormat(contentType string) (fio.Format, error) {
	if contentType == "" {
		return fio.FormatJSON, nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse content type")
	}
	switch mt {
	case "application/json", "text/json":
		return fio.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return fio.FormatYAML, nil
	case "application/toml", "text/toml":
		return fio.FormatTOML, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported content type %q", mt)
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("read body: %w", err)
	}
	return errs.Wrap(errs.ErrCodeInvalidInput, err, "read body")
}

// options builds pipeline options from query parameters, then fills the
// gaps from the configured render defaults.
func (s *Server) options(q url.Values) (pipeline.Options, error) {
	opts := pipeline.Options{
		ColorMode: flame.ColorMode(q.Get("color_mode")),
		Title:     q.Get("title"),
		Unit:      q.Get("unit"),
	}
	if v := q.Get("palette"); v != "" {
		opts.Palette = strings.Split(v, ",")
	}
	for name, dst := range map[string]*float64{"width": &opts.Width, "row_height": &opts.RowHeight} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errs.New(errs.ErrCodeInvalidInput, "%s must be a number, got %q", name, v)
			}
			*dst = f
		}
	}
	if v := q.Get("inverted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "inverted must be a boolean, got %q", v)
		}
		opts.Inverted = b
	}
	s.defaults.Apply(&opts)
	return opts, nil
}
