// Package store is the persistence layer for users, files and file shares.
// Every query binds its values as parameters; no SQL is built from input.
package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrUserNotFound       = errors.New("user not found")
	ErrFileNotFound       = errors.New("file not found or unauthorized")
	ErrAlreadyShared      = errors.New("file already shared with this user")
	ErrShareWithSelf      = errors.New("cannot share a file with its owner")
)

// ContentStore keeps file bodies outside the database.
type ContentStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// FileSummary is a row of a user's own file list.
type FileSummary struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	SizeBytes  int64     `json:"size_bytes"`
}

// SharedFile is a row of the list of files other users shared with someone.
type SharedFile struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	Owner      string    `json:"owner"`
	SharedDate time.Time `json:"shared_date"`
}

// File is a downloaded file. Content is returned exactly as uploaded.
type File struct {
	Filename string `json:"filename"`
	Content  string `json:"file_data"`
}

// DefaultBcryptCost is used unless WithBcryptCost says otherwise.
const DefaultBcryptCost = 12

type Store struct {
	db         *sql.DB
	content    ContentStore
	bcryptCost int
	log        *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Store)

// WithContentStore moves file bodies out of the files table.
func WithContentStore(c ContentStore) Option {
	return func(s *Store) { s.content = c }
}

func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.bcryptCost = cost }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New wraps an open pool. The pool is owned by the caller.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		bcryptCost: DefaultBcryptCost,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComponentCheck is the outcome of pinging one backing service. Err is nil
// when it answered; Detail carries extra state worth reporting either way.
type ComponentCheck struct {
	Err    error
	Detail string
}

// breakerReporter is implemented by content stores behind a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

// Health pings each backing service. object_storage is present only when
// configured.
func (s *Store) Health(ctx context.Context) map[string]ComponentCheck {
	out := map[string]ComponentCheck{"database": {Err: s.db.PingContext(ctx)}}
	if s.content != nil {
		check := ComponentCheck{Err: s.content.Ping(ctx)}
		if br, ok := s.content.(breakerReporter); ok {
			check.Detail = "circuit " + br.BreakerState()
		}
		out["object_storage"] = check
	}
	return out
}

// HasContentStore reports whether bodies go to object storage.
func (s *Store) HasContentStore() bool {
	return s.content != nil
}
