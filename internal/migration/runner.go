package migration

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// Store is the document persistence the runner migrates.
type Store interface {
	Cursor(ctx context.Context, c model.Collection) (model.DocumentCursor, error)
	Save(ctx context.Context, c model.Collection, doc model.Document) error
}

// Runner runs the migration over whole collections of a Store.
type Runner struct {
	store  Store
	driver *Driver
	dryRun bool
}

// NewRunner creates a new Runner. With dryRun set, changed documents are counted but not saved.
func NewRunner(store Store, driver *Driver, dryRun bool) *Runner {
	return &Runner{store: store, driver: driver, dryRun: dryRun}
}

// Run migrates one collection.
func (r *Runner) Run(ctx context.Context, c model.Collection) (model.MigrationReport, error) {
	if !c.Valid() {
		return model.MigrationReport{}, fmt.Errorf("unknown collection %q", c)
	}

	cursor, err := r.store.Cursor(ctx, c)
	if err != nil {
		return model.MigrationReport{Collection: c}, fmt.Errorf("open %s cursor: %w", c, err)
	}
	defer func() {
		if err := cursor.Close(); err != nil {
			zlog.Logger.Error().Err(err).Str("collection", string(c)).Msg("failed to close cursor")
		}
	}()

	saver := SaverFunc(func(ctx context.Context, doc model.Document) error {
		if r.dryRun {
			return nil
		}
		return r.store.Save(ctx, c, doc)
	})

	return r.driver.Migrate(ctx, c, cursor, saver, FieldsFor(c))
}

// RunAll migrates the given collections in order and stops at the first fatal error.
func (r *Runner) RunAll(ctx context.Context, collections []model.Collection) ([]model.MigrationReport, error) {
	reports := make([]model.MigrationReport, 0, len(collections))

	for _, c := range collections {
		report, err := r.Run(ctx, c)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}

	return reports, nil
}
