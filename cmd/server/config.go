package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agalitsyn/flagutils"
	"github.com/agalitsyn/secret"

	"github.com/agalitsyn/taskboard/version"
)

const EnvPrefix = "TASKBOARD"

type Config struct {
	Debug bool

	Log struct {
		Level string
	}

	HTTP struct {
		Addr        string
		CORSOrigins string
	}

	DB struct {
		Path string
	}

	Auth struct {
		JWTSecret  secret.String
		TokenTTL   time.Duration
		BcryptCost int
	}

	Telegram struct {
		Token  secret.String
		ChatID int64
	}
}

func (c Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(0)
	}
	return string(b)
}

func ParseFlags() Config {
	var cfg Config

	printVersion := flag.Bool("version", false, "Show version.")
	flag.StringVar(&cfg.Log.Level, "log-level", "info", "Log level (debug | info).")
	flag.StringVar(&cfg.HTTP.Addr, "addr", ":8080", "HTTP listen address.")
	flag.StringVar(&cfg.HTTP.CORSOrigins, "cors-origins", "", "Comma separated list of allowed CORS origins, empty disables CORS.")
	flag.StringVar(&cfg.DB.Path, "db", "taskboard.db", "Path to SQLite database file.")
	jwtSecret := flag.String("jwt-secret", "", "Secret for signing access tokens.")
	flag.DurationVar(&cfg.Auth.TokenTTL, "token-ttl", 24*time.Hour, "Access token lifetime.")
	flag.IntVar(&cfg.Auth.BcryptCost, "bcrypt-cost", 12, "Bcrypt cost for password hashes.")
	telegramToken := flag.String("telegram-token", "", "Telegram bot token, empty disables notifications.")
	flag.Int64Var(&cfg.Telegram.ChatID, "telegram-chat-id", 0, "Telegram chat to post task notifications to.")

	flagutils.Prefix = EnvPrefix
	flagutils.Parse()
	flag.Parse()

	if *printVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	cfg.Debug = cfg.Log.Level == "debug"
	cfg.Auth.JWTSecret = secret.NewString(*jwtSecret)
	cfg.Telegram.Token = secret.NewString(*telegramToken)

	return cfg
}

func (c Config) Validate() error {
	if c.Auth.JWTSecret.Unmask() == "" {
		return fmt.Errorf("jwt secret is required, set -jwt-secret or %s_JWT_SECRET", EnvPrefix)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Telegram.Token.Unmask() != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat id is required when telegram token is set")
	}
	return nil
}
