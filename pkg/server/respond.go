package server

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type invalidResponse struct {
	Valid       bool               `json:"valid"`
	Message     string             `json:"message"`
	Roots       []string           `json:"roots,omitempty"`
	Diagnostics []flame.Diagnostic `json:"diagnostics,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeInvalid(w http.ResponseWriter, l flame.Layout) {
	writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{
		Valid:       false,
		Message:     l.Validation.Message,
		Roots:       l.Validation.Roots,
		Diagnostics: l.Diagnostics,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	msg := errs.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: msg})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errs.Is(err, errs.ErrCodeInvalidHierarchy):
		return http.StatusUnprocessableEntity
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrCodeUnsupported):
		return http.StatusNotImplemented
	case errs.Is(err, errs.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
