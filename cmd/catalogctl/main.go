// Command catalogctl runs catalog maintenance tasks against the configured
// storage: schema migrations, slug backfill, rating drift repair and demo
// data seeding.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/app"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/config"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	redisrepo "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository/redis"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCLI(os.Stdout, openEnvironment).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "catalogctl:", err)
		os.Exit(1)
	}
}

// environment is what every command runs against.
type environment struct {
	storage     *app.Storage
	categories  *service.CategoryService
	products    *service.ProductService
	reviews     *service.ReviewService
	maintenance *service.MaintenanceService
	logger      *slog.Logger
	close       func()
}

func newEnvironment(storage *app.Storage, cache repository.ProductDetailCache, log *slog.Logger, closeFn func()) *environment {
	producer := event.NewProducer(nil, log)
	repos, uow := storage.Repos, storage.UoW
	return &environment{
		storage:     storage,
		categories:  service.NewCategoryService(repos, uow, cache, producer, nil, log),
		products:    service.NewProductService(repos, uow, cache, producer, nil, log),
		reviews:     service.NewReviewService(repos, uow, cache, producer, nil, log),
		maintenance: service.NewMaintenanceService(repos, uow, cache, nil, log),
		logger:      log,
		close:       closeFn,
	}
}

type opener func(ctx context.Context, logLevel string) (*environment, error)

func newCLI(out io.Writer, open opener) *cli.App {
	withEnv := func(run func(c *cli.Context, env *environment) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			env, err := open(c.Context, c.String("log-level"))
			if err != nil {
				return err
			}
			defer env.close()
			return run(c, env)
		}
	}

	return &cli.App{
		Name:      "catalogctl",
		Usage:     "catalog maintenance tasks",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"CATALOGCTL_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply pending schema migrations",
				Action: withEnv(func(c *cli.Context, env *environment) error {
					applied, err := env.storage.Migrate(c.Context, env.logger)
					if err != nil {
						return err
					}
					if len(applied) == 0 {
						fmt.Fprintln(out, "schema is up to date")
						return nil
					}
					for _, name := range applied {
						fmt.Fprintln(out, "applied", name)
					}
					return nil
				}),
			},
			{
				Name:  "fix-slugs",
				Usage: "assign slugs to categories and products stored without one",
				Action: withEnv(func(c *cli.Context, env *environment) error {
					fixes, err := env.maintenance.FixSlugs(c.Context)
					for _, f := range fixes {
						fmt.Fprintf(out, "%s %s %q -> %s\n", f.Entity, f.ID, f.Name, f.Slug)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d slugs assigned\n", len(fixes))
					return nil
				}),
			},
			{
				Name:  "seed",
				Usage: "create deterministic demo categories, products and reviews",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "products", Value: 100, Usage: "number of products to create"},
					&cli.IntFlag{Name: "max-reviews", Value: 4, Usage: "upper bound of reviews per product"},
					&cli.Uint64Flag{Name: "seed", Value: 42, Usage: "random seed"},
				},
				Action: withEnv(func(c *cli.Context, env *environment) error {
					if c.Int("products") < 0 || c.Int("max-reviews") < 0 {
						return fmt.Errorf("--products and --max-reviews must not be negative")
					}
					res, err := newSeeder(env, c.Uint64("seed")).run(c.Context, c.Int("products"), c.Int("max-reviews"))
					fmt.Fprintf(out, "created %d categories, %d products, %d reviews; skipped %d existing\n",
						res.Categories, res.Products, res.Reviews, res.Skipped)
					return err
				}),
			},
			{
				Name:  "recompute-ratings",
				Usage: "recompute every product rating aggregate from its approved reviews",
				Action: withEnv(func(c *cli.Context, env *environment) error {
					repairs, err := env.maintenance.RecomputeRatings(c.Context)
					for _, r := range repairs {
						fmt.Fprintf(out, "product %s: %s -> %s\n", r.ProductID, r.Before, r.After)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d aggregates repaired\n", len(repairs))
					return nil
				}),
			},
		},
	}
}

// openEnvironment connects the storage and cache named by the service
// configuration.
func openEnvironment(ctx context.Context, logLevel string) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.ServiceName+"-ctl", logLevel)

	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var (
		cache repository.ProductDetailCache
		rdb   *redis.Client
	)
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// Without the cache, stale details expire after CACHE_TTL.
			log.Warn("redis unavailable, cached product details are not flushed",
				slog.String("error", err.Error()),
			)
		} else {
			cache = redisrepo.NewProductCache(rdb, cfg.CacheTTL)
		}
	}

	return newEnvironment(storage, cache, log, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		storage.Close()
	}), nil
}
