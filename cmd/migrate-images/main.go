// Command migrate-images rewrites legacy image fields of stored products and categories
// into canonical asset records. It is safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/asset"
	"github.com/aliskhannn/catalog-images/internal/config"
	"github.com/aliskhannn/catalog-images/internal/migration"
	"github.com/aliskhannn/catalog-images/internal/model"
	catalogrepo "github.com/aliskhannn/catalog-images/internal/repository/catalog"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code, so deferred cleanup happens before exit.
func run() int {
	configPath := pflag.String("config", "./config/config.yml", "path to the config file")
	collections := pflag.StringSlice("collection", nil, "collections to migrate: products, categories (default from config)")
	dryRun := pflag.Bool("dry-run", false, "report what would change without saving")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.MustLoad(*configPath)

	names := *collections
	if len(names) == 0 {
		names = cfg.Migration.Collections
	}

	targets, err := parseCollections(names)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), nil, &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer func() {
		if err := db.Master.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close master DB")
		}
	}()

	runner := migration.NewRunner(
		catalogrepo.NewRepository(db),
		migration.NewDriver(asset.New(time.Now), nil),
		*dryRun,
	)

	reports, runErr := runner.RunAll(ctx, targets)

	for _, r := range reports {
		fmt.Printf("%-12s examined=%d updated=%d failed=%d dry_run=%t\n",
			r.Collection, r.Examined, r.Updated, r.Failed, *dryRun)
	}

	if runErr != nil {
		zlog.Logger.Error().Err(runErr).Msg("image migration aborted")
		return 1
	}

	return 0
}

func parseCollections(names []string) ([]model.Collection, error) {
	targets := make([]model.Collection, 0, len(names))
	for _, n := range names {
		c := model.Collection(n)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown collection %q", n)
		}
		targets = append(targets, c)
	}
	return targets, nil
}
