package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"sharebox/internal/store"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Message:   message,
		Error:     code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// writeInternal logs err with the request id and sends an opaque 500.
func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.logger(r).Error(message, zap.Error(err))
	s.writeError(w, r, http.StatusInternalServerError, "internal_error", message)
}

// writeStoreError maps persistence errors to responses. fallback is the
// message used for anything unexpected.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrDuplicateUsername):
		s.writeError(w, r, http.StatusConflict, "duplicate_username", "Username already exists")
	case errors.Is(err, store.ErrInvalidCredentials):
		s.writeError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, store.ErrPasswordTooLong):
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Password must be at most 72 bytes")
	case errors.Is(err, store.ErrUserNotFound):
		s.writeError(w, r, http.StatusNotFound, "user_not_found", "User not found")
	case errors.Is(err, store.ErrFileNotFound):
		s.writeError(w, r, http.StatusNotFound, "file_not_found", "File not found")
	case errors.Is(err, store.ErrAlreadyShared):
		s.writeError(w, r, http.StatusConflict, "already_shared", "File already shared with this user")
	case errors.Is(err, store.ErrShareWithSelf):
		s.writeError(w, r, http.StatusBadRequest, "share_with_self", "Cannot share a file with yourself")
	default:
		s.writeInternal(w, r, fallback, err)
	}
}

// logger returns the server logger tagged with the request id.
func (s *Server) logger(r *http.Request) *zap.Logger {
	return s.log.With(zap.String("request_id", RequestIDFromContext(r.Context())))
}

// normalizer is implemented by request bodies that clean their fields
// before validation.
type normalizer interface {
	normalize()
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// It writes the error response itself and returns false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, invalidMsg string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large",
				"Request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		case errors.Is(err, io.EOF):
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", invalidMsg)
		default:
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		}
		return false
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", invalidMsg)
			return false
		}
		s.writeInternal(w, r, "Request validation failed", err)
		return false
	}
	return true
}

// pathID parses a positive integer chi URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
