package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mkrupp/homecase-postboard/internal/auth/guard"
	"github.com/mkrupp/homecase-postboard/internal/auth/session"
	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/infra/config"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/infra/transport/http"
	"github.com/mkrupp/homecase-postboard/internal/repo/blob"
	"github.com/mkrupp/homecase-postboard/internal/repo/post"
	"github.com/mkrupp/homecase-postboard/internal/repo/sqlite"
	"github.com/mkrupp/homecase-postboard/internal/repo/user"
	"github.com/mkrupp/homecase-postboard/internal/svc/apisvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/postsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/uploadsvc"
	"github.com/mkrupp/homecase-postboard/internal/svc/usersvc"
)

const (
	appName = "postboard"
	svcName = "apisvc"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig                `envPrefix:"LOG_"`
	HTTP    apisvc.HTTPTransportConfig          `envPrefix:"HTTP_"`
	Token   token.Config                        `envPrefix:"TOKEN_"`
	Session session.Config                      `envPrefix:"REDIS_"`
	Guard   guard.Config                        `envPrefix:"GUARD_"`
	SQLite  sqlite.Config                       `envPrefix:"SQLITE_"`
	Blob    blob.FileSystemBlobRepositoryConfig `envPrefix:"BLOB_"`
	Upload  uploadsvc.UploadConfig              `envPrefix:"UPLOAD_"`
	User    usersvc.UserConfig                  `envPrefix:"USER_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		fmt.Fprintf(os.Stderr, "%s: config: %v\n", loggerName, err)
		os.Exit(1)
	}

	if err := parseFlags(&cfg, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		fmt.Fprintf(os.Stderr, "%s: %v\n", loggerName, err)
		os.Exit(2)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		os.Exit(1)
	}
}

// parseFlags lets command line flags override the environment.
func parseFlags(cfg *Config, args []string) error {
	flagSet := pflag.NewFlagSet(svcName, pflag.ContinueOnError)
	flagSet.StringVar(&cfg.HTTP.ServerAddr, "addr", cfg.HTTP.ServerAddr, "address to listen on")
	flagSet.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "minimum log level (debug, info, warn, error)")
	flagSet.StringVar(&cfg.Guard.Strategy, "guard", cfg.Guard.Strategy, "credential check (cookie, registry)")
	flagSet.StringVar(&cfg.SQLite.DatabasePath, "db", cfg.SQLite.DatabasePath, "path of the SQLite database")

	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0]) //nolint:err113
	}

	return nil
}

//nolint:funlen
func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.apisvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	codec, err := token.NewCodec(cfg.Token)
	if err != nil {
		return fmt.Errorf("new token codec: %w", err)
	}

	db, err := sqlite.Open(ctx, cfg.SQLite)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rdb := session.NewClient(cfg.Session)
	defer rdb.Close()

	registry := session.NewRedisRegistry(rdb, cfg.Session)
	if err := registry.Ping(ctx); err != nil {
		return fmt.Errorf("ping session registry: %w", err)
	}

	g, err := guard.New(cfg.Guard, codec, registry)
	if err != nil {
		return fmt.Errorf("new guard: %w", err)
	}

	userSvc, err := usersvc.NewUserService(user.SQLiteUserRepositoryFactory(db), codec, registry, cfg.User)
	if err != nil {
		return fmt.Errorf("new user service: %w", err)
	}

	uploadSvc, err := uploadsvc.NewBlobUploadService(ctx, blob.FileSystemBlobRepositoryFactory(cfg.Blob), cfg.Upload)
	if err != nil {
		return fmt.Errorf("new upload service: %w", err)
	}

	httpTransport := apisvc.NewHTTPTransport(
		userSvc,
		postsvc.NewPostService(post.NewSQLitePostRepository(db)),
		uploadSvc,
		g,
		cfg.Guard,
		cfg.HTTP,
		db,
		registry,
	)

	log.InfoContext(ctx, "starting", "guard", cfg.Guard.Strategy, "prefix", cfg.HTTP.Prefix)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
