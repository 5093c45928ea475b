package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"sharebox/internal/blob"
	"sharebox/internal/config"
	"sharebox/internal/db"
	"sharebox/internal/logging"
	"sharebox/internal/server"
	"sharebox/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sharebox: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sharebox",
		Usage:   "file sharing backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"SHAREBOX_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "apply migrations and serve the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateUp,
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Usage: "number of migrations to roll back (0 = all)",
								Value: 1,
							},
						},
						Action: migrateDown,
					},
					{
						Name:   "version",
						Usage:  "print the applied schema version",
						Action: migrateVersion,
					},
				},
			},
			{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "manage users",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "create a new user",
						ArgsUsage: "<username>",
						Action:    createUser,
					},
				},
			},
		},
	}
}

// env bundles what every command needs.
type env struct {
	cfg config.Config
	log *zap.Logger
	db  *sql.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	logging.Sync(e.log)
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	conn, err := db.OpenDB(cfg.Database.URL, db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("db_connect_failed", zap.Error(err))
		logging.Sync(log)
		return nil, err
	}

	return &env{cfg: cfg, log: log, db: conn}, nil
}

func newStore(ctx context.Context, e *env) (*store.Store, error) {
	opts := []store.Option{
		store.WithBcryptCost(e.cfg.Auth.BcryptCost),
		store.WithLogger(e.log.Named("store")),
	}

	if e.cfg.Storage.Enabled() {
		content, err := blob.New(ctx, blob.Config{
			Endpoint:     e.cfg.Storage.Endpoint,
			AccessKey:    e.cfg.Storage.AccessKey,
			SecretKey:    e.cfg.Storage.SecretKey,
			Bucket:       e.cfg.Storage.Bucket,
			UseSSL:       e.cfg.Storage.UseSSL,
			CreateBucket: e.cfg.Storage.CreateBucket,
		}, e.log.Named("blob"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithContentStore(content))
	}

	return store.New(e.db, opts...), nil
}

func serverConfig(cfg config.Config) server.Config {
	return server.Config{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		CORSOrigins:       cfg.Server.CORSOrigins,
		LoginRateLimit:    cfg.Auth.LoginRateLimit,
		LoginRateWindow:   cfg.Auth.LoginRateWindow,
		LockoutAttempts:   cfg.Auth.LockoutAttempts,
		LockoutDuration:   cfg.Auth.LockoutDuration,
		LockoutWindow:     cfg.Auth.LockoutWindow,
		Version:           version,
	}
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.log.Info("running_migrations")
	if err := db.RunMigrations(ctx, e.db); err != nil {
		e.log.Error("migration_failed", zap.Error(err))
		return err
	}
	e.log.Info("migrations_complete")

	st, err := newStore(ctx, e)
	if err != nil {
		e.log.Error("object_storage_failed", zap.Error(err))
		return err
	}

	srv := server.New(serverConfig(e.cfg), st, e.log.Named("http"))

	// Serve in the background so signals can be handled here.
	errCh := make(chan error, 1)
	go func() {
		e.log.Info("starting",
			zap.String("addr", e.cfg.Server.Addr),
			zap.String("version", version),
			zap.Bool("object_storage", st.HasContentStore()),
		)
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		e.log.Info("shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.log.Error("shutdown_error", zap.Error(err))
			return err
		}
		e.log.Info("shutdown_complete")
		return nil
	case err := <-errCh:
		if err != nil {
			e.log.Error("server_error", zap.Error(err))
		}
		return err
	}
}

func migrateUp(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if err := db.RunMigrations(c.Context, e.db); err != nil {
		return err
	}
	e.log.Info("migrations_complete")
	return nil
}

func migrateDown(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	steps := c.Int("steps")
	if err := db.RollbackMigrations(c.Context, e.db, steps); err != nil {
		return err
	}
	e.log.Info("migrations_rolled_back", zap.Int("steps", steps))
	return nil
}

func migrateVersion(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	v, dirty, err := db.MigrationVersion(c.Context, e.db)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "version %d dirty=%t\n", v, dirty)
	return nil
}

func createUser(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("invalid number of arguments: expected <username>")
	}
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return errors.New("username must not be empty")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	fmt.Fprintf(c.App.ErrWriter, "Enter password for new user %s: ", name)
	password, err := readPassword(os.Stdin, c.App.ErrWriter)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	st, err := newStore(c.Context, e)
	if err != nil {
		return err
	}
	id, err := st.CreateUser(c.Context, name, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "created user %s with id %d\n", name, id)
	return nil
}

// readPassword reads without echo from a terminal, or one line from a pipe.
func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprint(out, "\n")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
