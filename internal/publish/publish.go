// Package publish merges a batch of articles into a period table through the
// reconciliation engine: normalize, partition on the retention window, merge,
// then write the whole table back in one replace.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

// Day replaces the rows of `table` that fall on `day` (in loc) with the
// incoming batch. Rows outside the day, and rows whose timestamp cannot be
// parsed, are preserved verbatim; rows already present win over incoming
// duplicates. requiredColumns is the column set the caller needs the table
// to carry; the header row grows to include it and never shrinks.
func Day(ctx context.Context, store rowstore.Store, table string, day time.Time, loc *time.Location, requiredColumns []string, batch []models.Article) error {
	if err := store.EnsureTable(ctx, table, reconcile.BaseHeaders()); err != nil {
		return fmt.Errorf("failed to ensure table: %w", err)
	}

	headers, rows, err := store.GetTable(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}

	headers, rows = reconcile.Normalize(headers, rows, requiredColumns)

	preserved, dropped, unparseable := reconcile.Partition(headers, rows, loc, reconcile.SameLocalDay(day))
	log.Info().
		Str("table", table).
		Str("day", day.Format("2006-01-02")).
		Int("preserved", len(preserved)).
		Int("superseded", len(dropped)).
		Int("unparseable", len(unparseable)).
		Msg("Partitioned existing rows")

	final := reconcile.MergeArticles(headers, preserved, batch)

	if err := store.ReplaceTable(ctx, table, headers, final); err != nil {
		return fmt.Errorf("failed to replace table: %w", err)
	}

	log.Info().
		Str("table", table).
		Int("rows", len(final)).
		Int("appended", len(final)-len(preserved)).
		Msg("Table updated")
	return nil
}
