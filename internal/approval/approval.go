// Package approval tracks per-article review state and reconciles it across
// the two stores that carry it: the JSON snapshot artifact and the curated
// period table. The two writes are independent and idempotent; there is no
// transaction spanning them, only a bounded staleness window between the
// first sink's success and the second's.
package approval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/artifact"
	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

var vetoRe = regexp.MustCompile(`(?i)no\s*(\d+)`)

// ParseVetoes extracts veto ordinals from a free-text reply ("no 2 and no
// 4" yields [2, 4]): case-insensitive, distinct, sorted.
func ParseVetoes(body string) []int {
	seen := make(map[int]bool)
	for _, m := range vetoRe.FindAllStringSubmatch(body, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = true
	}

	ordinals := make([]int, 0, len(seen))
	for n := range seen {
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)
	return ordinals
}

// ApplyVetoes marks the articles at the given 1-based ordinals as vetoed
// and every other article in the batch as approved; the veto pass is the
// human review, so untouched entries leave pending. Out-of-range ordinals
// are ignored: they represent stale or malformed input, not an error.
// Applying the same ordinal set twice yields the same result as once.
func ApplyVetoes(articles []models.Article, ordinals []int) []models.Article {
	vetoed := make(map[int]bool, len(ordinals))
	for _, n := range ordinals {
		if n >= 1 && n <= len(articles) {
			vetoed[n] = true
		} else {
			log.Warn().Int("ordinal", n).Int("batch", len(articles)).Msg("Ignoring out-of-range veto ordinal")
		}
	}

	out := make([]models.Article, len(articles))
	for i, a := range articles {
		if vetoed[i+1] {
			a.Approval = models.ApprovalVetoed
			a.Vetoed = true
		} else {
			a.Approval = models.ApprovalApproved
			a.Vetoed = false
		}
		out[i] = a
	}
	return out
}

// Reconciler applies a veto directive to both stores.
type Reconciler struct {
	store    rowstore.Store
	jsonPath string
	loc      *time.Location
}

// NewReconciler creates a Reconciler over the given stores.
func NewReconciler(store rowstore.Store, jsonPath string, loc *time.Location) *Reconciler {
	return &Reconciler{store: store, jsonPath: jsonPath, loc: loc}
}

// Apply reads the current ranked batch from the JSON snapshot, applies the
// ordinals, and writes the result to both sinks. Each sink's update is a
// full-document replace of the state it owns, so a retry of the same input
// is a no-op beyond redundant writes. A failure in one sink does not stop
// the other; all failures are logged per sink and joined in the return.
func (r *Reconciler) Apply(ctx context.Context, ordinals []int, now time.Time) ([]models.Article, error) {
	batch, err := artifact.Load(r.jsonPath)
	if err != nil {
		return nil, err
	}

	updated := ApplyVetoes(batch, ordinals)

	var jsonErr, sheetErr error
	if jsonErr = artifact.Save(r.jsonPath, updated); jsonErr != nil {
		log.Error().Err(jsonErr).Str("path", r.jsonPath).Msg("Failed to update JSON snapshot")
	}
	if sheetErr = r.syncTable(ctx, updated, now); sheetErr != nil {
		log.Error().Err(sheetErr).Msg("Failed to update approval column")
	}

	return updated, errors.Join(jsonErr, sheetErr)
}

// syncTable writes the Approval column for the batch's rows in the current
// selects table. Rows are located by logical key, not position: the table
// accumulates days, while ordinals only address the current batch.
func (r *Reconciler) syncTable(ctx context.Context, batch []models.Article, now time.Time) error {
	table := rowstore.SelectsTableName(now.In(r.loc))

	headers, rows, err := r.store.GetTable(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read selects table: %w", err)
	}

	headers, rows = reconcile.Normalize(headers, rows, []string{reconcile.ColApproval})
	if err := r.store.ReplaceTable(ctx, table, headers, rows); err != nil {
		return fmt.Errorf("failed to normalize selects table: %w", err)
	}

	approvalIdx := reconcile.ColumnIndex(headers, reconcile.ColApproval)

	byKey := make(map[string]models.Article, len(batch))
	for _, a := range batch {
		byKey[a.Key()] = a
	}

	updatedCount := 0
	for i, row := range rows {
		a, ok := byKey[reconcile.ArticleKey(headers, row)]
		if !ok {
			continue
		}
		if err := r.store.UpdateCell(ctx, table, i, approvalIdx, string(a.Approval)); err != nil {
			return fmt.Errorf("failed to update approval for row %d: %w", i, err)
		}
		updatedCount++
	}

	log.Info().
		Str("table", table).
		Int("updated", updatedCount).
		Msg("Approval column synced")
	return nil
}
