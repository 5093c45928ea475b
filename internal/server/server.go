package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"sharebox/internal/store"
)

// Store is the persistence surface the HTTP layer depends on.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (int64, error)
	LoginUser(ctx context.Context, username, password string) (store.User, error)
	CheckUserExists(ctx context.Context, username string) (bool, int64, error)
	UploadFile(ctx context.Context, userID int64, filename, content string) (int64, error)
	GetUserFiles(ctx context.Context, userID int64) ([]store.FileSummary, error)
	GetSharedFiles(ctx context.Context, userID int64) ([]store.SharedFile, error)
	GetFile(ctx context.Context, fileID int64) (store.File, error)
	ShareFile(ctx context.Context, fileID, ownerID, sharedWithUserID int64) error
	DeleteFile(ctx context.Context, fileID, userID int64) error
	Health(ctx context.Context) map[string]store.ComponentCheck
}

type Config struct {
	Addr              string // e.g. ":4000"
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxBodyBytes      int64
	CORSOrigins       []string

	LoginRateLimit  int
	LoginRateWindow time.Duration
	LockoutAttempts int
	LockoutDuration time.Duration
	LockoutWindow   time.Duration

	Version string
}

type Server struct {
	cfg      Config
	store    Store
	log      *zap.Logger
	metrics  *Metrics
	limiter  *rateLimiter
	lockout  *AccountLockout
	validate *validator.Validate
	started  time.Time

	httpServer *http.Server
}

func New(cfg Config, st Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}
	if cfg.LoginRateWindow <= 0 {
		cfg.LoginRateWindow = time.Minute
	}
	if cfg.LockoutAttempts <= 0 {
		cfg.LockoutAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 10 * time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		log:      log,
		metrics:  &Metrics{},
		limiter:  newRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
		lockout:  NewAccountLockout(cfg.LockoutAttempts, cfg.LockoutDuration, cfg.LockoutWindow),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		started:  time.Now(),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.limiter.stop()
	s.lockout.Stop()
	return err
}
