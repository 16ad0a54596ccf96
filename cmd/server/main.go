package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/auth"
	"github.com/agalitsyn/taskboard/internal/httpapi"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/notify"
	"github.com/agalitsyn/taskboard/internal/storage/sqlite"
	"github.com/agalitsyn/taskboard/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ParseFlags()
	log := setupLogger(cfg)

	if cfg.Debug {
		log.Logf("[DEBUG] running with config")
		fmt.Fprintln(os.Stdout, cfg.String())
	}
	if err := cfg.Validate(); err != nil {
		log.Logf("[FATAL] invalid config: %v", err)
	}
	log.Logf("[INFO] starting taskboard %s", version.String())

	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		log.Logf("[FATAL] could not open database %s: %v", cfg.DB.Path, err)
	}
	defer db.Close()

	var (
		notifier app.Notifier = notify.Nop{}
		queue    *notify.Queue
	)
	if cfg.Telegram.Token.Unmask() != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token.Unmask(), cfg.Telegram.ChatID, log)
		if err != nil {
			log.Logf("[FATAL] could not init telegram notifications: %v", err)
		}
		queue = notify.NewQueue(tg, notify.DefaultQueueSize, log)
		notifier = queue
	}

	clock := model.SystemClock{}
	users := app.NewUserService(sqlite.NewUserStorage(db), auth.NewPasswordHasher(cfg.Auth.BcryptCost), clock, log)
	tasks := app.NewTaskService(sqlite.NewTaskStorage(db), users, clock, notifier, log)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		SecretKey: cfg.Auth.JWTSecret.Unmask(),
		TTL:       cfg.Auth.TokenTTL,
		Issuer:    "taskboard",
	})

	srv := httpapi.NewServer(httpapi.Config{
		Addr:        cfg.HTTP.Addr,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		AccessLog:   true,
	}, users, tasks, tokens, db, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case <-ctx.Done():
		log.Logf("[DEBUG] stopped: %s", ctx.Err())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Logf("[ERROR] http server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logf("[WARN] http server shutdown: %v", err)
	}
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			log.Logf("[WARN] pending notifications dropped: %v", err)
		}
	}
}

func setupLogger(cfg Config) lgr.L {
	opts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if cfg.Debug {
		opts = append(opts, lgr.Debug, lgr.CallerFunc)
	}

	var secrets []string
	for _, s := range []string{cfg.Auth.JWTSecret.Unmask(), cfg.Telegram.Token.Unmask()} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		opts = append(opts, lgr.Secret(secrets...))
	}

	lgr.Setup(opts...)
	return lgr.New(opts...)
}
