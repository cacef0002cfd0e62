package main

// @title           Releasetrain Lake API
// @version         1.0
// @description     Answers release questions from a Silver and Gold fact lake built over the release-train feeds.

// @contact.name   Releasetrain
// @contact.url    https://github.com/custodia-labs/releasetrain-lake/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	_ "github.com/custodia-labs/releasetrain-lake/docs"
	"github.com/custodia-labs/releasetrain-lake/internal/config"
)

var version = "dev"

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "releasetrain-lake",
		Usage:    "Build and query the release-train fact lake",
		Version:  version,
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "Load variables from this file before reading the environment", Value: ".env"},
			&cli.StringFlag{Name: "store", Usage: "Store backend (sqlite, postgres)"},
			&cli.StringFlag{Name: "db-path", Aliases: []string{"d"}, Usage: "SQLite database file"},
			&cli.StringFlag{Name: "database-url", Usage: "Postgres connection string"},
			&cli.StringFlag{Name: "redis-url", Usage: "Redis URL for the shared lock and rebuild queue"},
			&cli.StringFlag{Name: "vendors-file", Usage: "Vendor vocabulary file (one per line or JSON array)"},
			&cli.StringSliceFlag{Name: "vendor-name", Usage: "Vendor vocabulary entry (repeatable)"},
			&cli.DurationFlag{Name: "ttl", Usage: "Freshness window per vendor"},
			&cli.DurationFlag{Name: "lock-wait", Usage: "How long a build waits for the lake lock"},
			&cli.StringFlag{Name: "feed-base-url", Usage: "Feed API base URL, or file://dir for saved payloads"},
			&cli.StringFlag{Name: "index-path", Usage: "Bleve sentence index directory"},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "Set logging level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format (text, json)"},
		},
		Before: setup,
		Commands: []*cli.Command{
			serveCommand(),
			workerCommand(),
			buildCommand(),
			askCommand(),
			answerCommand(),
			searchCommand(),
			ingestCommand(),
			statusCommand(),
			tokenCommand(),
		},
	}
}

// setup loads configuration, applies global flags and installs the logger.
func setup(c *cli.Context) error {
	var files []string
	if f := c.String("env-file"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, c.App.ErrWriter)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.App.Metadata[configKey] = cfg
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("store") {
		cfg.Store.Backend = strings.ToLower(c.String("store"))
	}
	if c.IsSet("db-path") {
		cfg.Store.DBPath = c.String("db-path")
	}
	if c.IsSet("database-url") {
		cfg.Store.DatabaseURL = c.String("database-url")
	}
	if c.IsSet("redis-url") {
		cfg.RedisURL = c.String("redis-url")
	}
	if c.IsSet("vendors-file") {
		cfg.Vendors.File = c.String("vendors-file")
	}
	if c.IsSet("vendor-name") {
		cfg.Vendors.Names = c.StringSlice("vendor-name")
	}
	if c.IsSet("ttl") {
		cfg.Lake.TTL = c.Duration("ttl")
	}
	if c.IsSet("lock-wait") {
		cfg.Lake.LockWait = c.Duration("lock-wait")
	}
	if c.IsSet("feed-base-url") {
		cfg.Feed.BaseURL = c.String("feed-base-url")
	}
	if c.IsSet("index-path") {
		cfg.IndexPath = c.String("index-path")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", cfg.Format)
	}
}

func configFrom(c *cli.Context) config.Config {
	cfg, _ := c.App.Metadata[configKey].(config.Config)
	return cfg
}
