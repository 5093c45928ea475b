package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser registers username with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, ErrPasswordTooLong
		}
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, string(hash),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	s.log.Debug("user created", zap.Int64("user_id", id))
	return id, nil
}

// LoginUser checks credentials. An unknown username and a wrong password
// both yield ErrInvalidCredentials after a bcrypt comparison.
func (s *Store) LoginUser(ctx context.Context, username, password string) (User, error) {
	var (
		u    = User{Username: username}
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("compare password: %w", err)
	}

	return u, nil
}

// CheckUserExists resolves a username to its id.
func (s *Store) CheckUserExists(ctx context.Context, username string) (bool, int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1`,
		username,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("lookup user: %w", err)
	}
	return true, id, nil
}

// dummy returns a hash at the configured cost so that logins for unknown
// users spend the same time in bcrypt as real ones.
func (s *Store) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("sharebox-timing-equaliser"), s.bcryptCost)
		if err != nil {
			s.log.Warn("dummy hash generation failed", zap.Error(err))
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
