package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sharebox/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// Usernames are compared trimmed everywhere, including share targets.
func (c *credentialsRequest) normalize() {
	c.Username = strings.TrimSpace(c.Username)
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type loginResponse struct {
	Message string     `json:"message"`
	User    store.User `json:"user"`
}

const credentialsRequired = "Username and password required"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decodeJSON(w, r, &req, credentialsRequired) {
		return
	}

	id, err := s.store.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeStoreError(w, r, err, "Registration failed")
		return
	}

	s.metrics.RecordRegistration()
	s.logger(r).Info("user registered", zap.Int64("user_id", id))
	writeJSON(w, http.StatusOK, registerResponse{Message: "User created successfully", UserID: id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decodeJSON(w, r, &req, credentialsRequired) {
		return
	}

	if locked, until := s.lockout.IsLocked(req.Username); locked {
		w.Header().Set("Retry-After", retryAfter(time.Until(until)))
		s.writeError(w, r, http.StatusTooManyRequests, "account_locked",
			"Too many failed login attempts. Please try again later.")
		return
	}

	user, err := s.store.LoginUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			s.metrics.RecordLoginAttempt(false)
			if locked, until := s.lockout.RecordFailedAttempt(req.Username); locked {
				s.logger(r).Warn("account locked", zap.Time("locked_until", until))
			}
		}
		s.writeStoreError(w, r, err, "Login failed")
		return
	}

	s.lockout.RecordSuccessfulLogin(req.Username)
	s.metrics.RecordLoginAttempt(true)
	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", User: user})
}
