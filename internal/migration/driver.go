// Package migration rewrites image fields stored before canonical asset records existed.
package migration

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/metrics"
	"github.com/aliskhannn/catalog-images/internal/model"
)

// Cursor yields documents one at a time.
type Cursor interface {
	Next(ctx context.Context) (model.Document, bool, error)
}

// Saver persists one document.
type Saver interface {
	Save(ctx context.Context, doc model.Document) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, doc model.Document) error

// Save calls f(ctx, doc).
func (f SaverFunc) Save(ctx context.Context, doc model.Document) error {
	return f(ctx, doc)
}

// Driver walks a collection and normalizes legacy image fields.
type Driver struct {
	normalizer normalizer
	metrics    *metrics.Metrics
}

// NewDriver creates a new Driver. Metrics may be nil.
func NewDriver(n normalizer, m *metrics.Metrics) *Driver {
	return &Driver{normalizer: n, metrics: m}
}

// Migrate processes documents strictly one at a time in cursor order and saves only the
// documents whose fields changed.
//
// A document that fails to normalize or save is logged, counted in the report and
// skipped. Only a failing cursor or a cancelled ctx stops the run; the partial report
// is returned alongside the error.
func (d *Driver) Migrate(ctx context.Context, collection model.Collection, cursor Cursor, saver Saver, fields []Field) (model.MigrationReport, error) {
	report := model.MigrationReport{Collection: collection}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc, ok, err := cursor.Next(ctx)
		if err != nil {
			return report, fmt.Errorf("read next %s document: %w", collection, err)
		}
		if !ok {
			break
		}

		report.Examined++

		changed, err := d.apply(doc, fields)
		if err != nil {
			d.fail(&report, doc, err)
			continue
		}

		if !changed {
			d.metrics.IncMigrated(string(collection), "skipped")
			continue
		}

		if err := saver.Save(ctx, doc); err != nil {
			d.fail(&report, doc, fmt.Errorf("save: %w", err))
			continue
		}

		report.Updated++
		d.metrics.IncMigrated(string(collection), "updated")

		zlog.Logger.Info().
			Str("collection", string(collection)).
			Str("id", doc.ID.String()).
			Msg("updated document images")
	}

	zlog.Logger.Info().
		Str("collection", string(collection)).
		Int("examined", report.Examined).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("image migration completed")

	return report, nil
}

func (d *Driver) apply(doc model.Document, fields []Field) (bool, error) {
	if doc.Body == nil {
		return false, nil
	}

	changed := false
	for _, f := range fields {
		c, err := f.migrate(doc.Body, d.normalizer)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", f.Name, err)
		}
		changed = changed || c
	}

	return changed, nil
}

func (d *Driver) fail(report *model.MigrationReport, doc model.Document, err error) {
	report.Failed++
	d.metrics.IncMigrated(string(report.Collection), "failed")

	zlog.Logger.Error().
		Err(err).
		Str("collection", string(report.Collection)).
		Str("id", doc.ID.String()).
		Msg("failed to migrate document")
}
