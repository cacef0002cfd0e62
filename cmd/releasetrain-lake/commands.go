package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/releasetrain"
	httpadapter "github.com/custodia-labs/releasetrain-lake/internal/adapters/driving/http"
	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/worker"
)

// withLake opens the lake for the duration of one command.
func withLake(c *cli.Context, fn func(ctx context.Context, l *lake) error) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := openLake(ctx, configFrom(c), slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			slog.Warn("failed to close lake", "error", err)
		}
	}()
	return fn(ctx, l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default PORT)"},
		},
		Action: func(c *cli.Context) error {
			return withLake(c, func(ctx context.Context, l *lake) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				verifier, err := l.newVerifier()
				if err != nil {
					return err
				}
				if verifier == nil {
					l.logger.Warn("JWT_SECRET not set, admin endpoints are disabled")
				}

				if l.cfg.Worker.RefreshEnabled {
					refresher := l.newRefresher()
					if err := refresher.Start(ctx); err != nil {
						return err
					}
					defer refresher.Stop()
				}

				cfg := httpadapter.DefaultConfig()
				cfg.Port = l.cfg.Server.Port
				if c.IsSet("port") {
					cfg.Port = c.Int("port")
				}
				cfg.Version = version

				server := httpadapter.NewServer(cfg, httpadapter.Deps{
					Lake:       l.builds,
					Answers:    l.answers,
					Latest:     l.stores.latest,
					Vocabulary: l.vocabulary,
					Verifier:   verifier,
					TaskQueue:  l.queue,
					Pingers:    l.pingers,
					Logger:     l.logger,
				})
				return server.Start(ctx)
			})
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Process queued rebuild tasks (requires REDIS_URL)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Usage: "Concurrent builds (default WORKER_CONCURRENCY)"},
		},
		Action: func(c *cli.Context) error {
			return withLake(c, func(ctx context.Context, l *lake) error {
				if l.queue == nil {
					return fmt.Errorf("%w: worker mode needs REDIS_URL", domain.ErrQueueUnavailable)
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				concurrency := l.cfg.Worker.Concurrency
				if c.IsSet("concurrency") {
					concurrency = c.Int("concurrency")
				}

				wcfg := worker.WorkerConfig{
					TaskQueue:   l.queue,
					Lake:        l.builds,
					Logger:      l.logger,
					Concurrency: concurrency,
				}
				if l.cfg.Worker.RefreshEnabled {
					wcfg.Refresher = l.newRefresher()
				}

				w := worker.NewWorker(wcfg)
				if err := w.Start(ctx); err != nil {
					return err
				}
				l.logger.Info("worker started, processing rebuild tasks")

				<-ctx.Done()
				l.logger.Info("shutting down worker")
				w.Stop()
				return nil
			})
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build a vendor's Silver and Gold data if it is stale",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "vendor", Aliases: []string{"v"}, Usage: "Vendor to build", Required: true},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Rebuild even when fresh"},
		},
		Action: func(c *cli.Context) error {
			return withLake(c, func(ctx context.Context, l *lake) error {
				build := l.builds.EnsureFresh
				if c.Bool("force") {
					build = l.builds.Rebuild
				}
				result, err := build(ctx, c.String("vendor"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			})
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a free-text question, refreshing the vendor when stale",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Evidence limit (default ANSWER_LIMIT)"},
		},
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return fmt.Errorf("%w: a question is required", domain.ErrInvalidInput)
			}
			return withLake(c, func(ctx context.Context, l *lake) error {
				answer, err := l.answers.Ask(ctx, query, c.Int("limit"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, answer)
			})
		},
	}
}

func answerCommand() *cli.Command {
	return &cli.Command{
		Name:  "answer",
		Usage: "Answer for a known intent and vendor without building",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "intent", Aliases: []string{"i"}, Usage: "VERSION, CVE, PATCH or GENERIC", Required: true},
			&cli.StringFlag{Name: "vendor", Aliases: []string{"v"}, Usage: "Vendor name", Required: true},
			&cli.IntFlag{Name: "limit", Usage: "Evidence limit (default ANSWER_LIMIT)"},
		},
		Action: func(c *cli.Context) error {
			intent, err := domain.ParseIntent(c.String("intent"))
			if err != nil {
				return err
			}
			return withLake(c, func(ctx context.Context, l *lake) error {
				answer, err := l.answers.Answer(ctx, intent, c.String("vendor"), c.Int("limit"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, answer)
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over kept sentences (requires INDEX_PATH)",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "vendor", Aliases: []string{"v"}, Usage: "Restrict to a vendor"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum hits"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			return withLake(c, func(ctx context.Context, l *lake) error {
				hits, err := l.answers.Search(ctx, c.String("vendor"), query, c.Int("limit"))
				if err != nil {
					return err
				}
				if hits == nil {
					hits = []domain.SearchHit{}
				}
				return printJSON(c.App.Writer, hits)
			})
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load raw items from a file and rebuild Silver and Gold from them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Item source (os, reddit)", Required: true},
			&cli.StringFlag{Name: "file", Usage: "JSON list or {\"results\": [...]} payload", Required: true},
		},
		Action: func(c *cli.Context) error {
			source, err := domain.ParseSource(c.String("source"))
			if err != nil {
				return err
			}
			items, err := releasetrain.ReadItemsFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read items: %w", err)
			}
			return withLake(c, func(ctx context.Context, l *lake) error {
				stats, err := l.builds.Ingest(ctx, source, items)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, stats)
			})
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "List built vendors with their freshness",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "totals", Usage: "Print lake row counts instead"},
		},
		Action: func(c *cli.Context) error {
			return withLake(c, func(ctx context.Context, l *lake) error {
				if c.Bool("totals") {
					totals, err := l.builds.Totals(ctx)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, totals)
				}
				statuses, err := l.builds.Status(ctx)
				if err != nil {
					return err
				}
				if statuses == nil {
					statuses = []domain.VendorStatus{}
				}
				return printJSON(c.App.Writer, statuses)
			})
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API token signed with JWT_SECRET",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Usage: "Token subject", Value: "admin"},
			&cli.StringFlag{Name: "role", Usage: "admin or reader", Value: string(domain.RoleAdmin)},
			&cli.DurationFlag{Name: "expires", Usage: "Token lifetime", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			l := &lake{cfg: configFrom(c)}
			verifier, err := l.newVerifier()
			if err != nil {
				return err
			}
			if verifier == nil {
				return fmt.Errorf("%w: JWT_SECRET is not set", domain.ErrInvalidInput)
			}
			token, err := verifier.IssueToken(c.String("subject"), domain.Role(c.String("role")), c.Duration("expires"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}
}
