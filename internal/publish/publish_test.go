package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func published(day time.Time) string {
	return day.Format(time.RFC1123Z)
}

func TestDayCreatesTableAndWritesBatch(t *testing.T) {
	ctx := context.Background()
	loc := pacific(t)
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	store := rowstore.NewMemStore()

	batch := []models.Article{
		{Title: "First", Link: "https://a/1", Source: "Stereogum", Published: published(day)},
		{Title: "Second", Link: "https://a/2", Source: "Pitchfork", Published: published(day)},
	}

	require.NoError(t, Day(ctx, store, "June 2025", day, loc, reconcile.BaseHeaders(), batch))

	headers, rows, err := store.GetTable(ctx, "June 2025")
	require.NoError(t, err)
	assert.Equal(t, reconcile.BaseHeaders(), headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "First", rows[0][0])
	assert.Equal(t, "https://a/2", rows[1][1])
}

func TestDayRerunReplacesSameDayOnly(t *testing.T) {
	ctx := context.Background()
	loc := pacific(t)
	store := rowstore.NewMemStore()

	june1 := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	june2 := time.Date(2025, 6, 2, 12, 0, 0, 0, loc)

	require.NoError(t, Day(ctx, store, "June 2025", june1, loc, reconcile.BaseHeaders(), []models.Article{
		{Title: "Day one pick", Link: "https://a/1", Source: "Stereogum", Published: published(june1)},
	}))
	require.NoError(t, Day(ctx, store, "June 2025", june2, loc, reconcile.BaseHeaders(), []models.Article{
		{Title: "Day two pick", Link: "https://a/2", Source: "Pitchfork", Published: published(june2)},
	}))

	// Re-running day two with a fresh batch supersedes day two's rows but
	// leaves day one untouched.
	require.NoError(t, Day(ctx, store, "June 2025", june2, loc, reconcile.BaseHeaders(), []models.Article{
		{Title: "Day two retake", Link: "https://a/3", Source: "BrooklynVegan", Published: published(june2)},
	}))

	_, rows, err := store.GetTable(ctx, "June 2025")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Day one pick", rows[0][0])
	assert.Equal(t, "Day two retake", rows[1][0])
}

func TestDayExistingRowWinsOverIncomingDuplicate(t *testing.T) {
	ctx := context.Background()
	loc := pacific(t)
	store := rowstore.NewMemStore()

	june1 := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	june2 := time.Date(2025, 6, 2, 12, 0, 0, 0, loc)

	headers := append(reconcile.BaseHeaders(), reconcile.ColCaption)
	captioned := models.Article{
		Title: "Sticky pick", Link: "https://a/1", Source: "Stereogum",
		Published: published(june1), Caption: "Hand-written caption",
	}
	require.NoError(t, store.ReplaceTable(ctx, "June 2025", headers,
		[][]string{reconcile.ArticleToRow(headers, captioned)}))

	// The same article resurfaces in a later day's batch without a caption.
	require.NoError(t, Day(ctx, store, "June 2025", june2, loc, reconcile.BaseHeaders(), []models.Article{
		{Title: "Sticky pick", Link: "https://a/1", Source: "Stereogum", Published: published(june1)},
	}))

	gotHeaders, rows, err := store.GetTable(ctx, "June 2025")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	idx := reconcile.ColumnIndex(gotHeaders, reconcile.ColCaption)
	assert.Equal(t, "Hand-written caption", rows[0][idx])
}

func TestDayGrowsHeadersForRequiredColumns(t *testing.T) {
	ctx := context.Background()
	loc := pacific(t)
	day := time.Date(2025, 6, 2, 12, 0, 0, 0, loc)
	store := rowstore.NewMemStore()

	require.NoError(t, store.ReplaceTable(ctx, "June 2025 (selects)", reconcile.BaseHeaders(), nil))

	required := append(reconcile.BaseHeaders(), reconcile.ColCaption, reconcile.ColApproval)
	require.NoError(t, Day(ctx, store, "June 2025 (selects)", day, loc, required, []models.Article{
		{Title: "Pick", Link: "https://a/1", Source: "Stereogum", Published: published(day), Caption: "🎶"},
	}))

	headers, rows, err := store.GetTable(ctx, "June 2025 (selects)")
	require.NoError(t, err)
	assert.Equal(t, required, headers)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(required))
}

func TestDayPreservesUnparseableRows(t *testing.T) {
	ctx := context.Background()
	loc := pacific(t)
	day := time.Date(2025, 6, 2, 12, 0, 0, 0, loc)
	store := rowstore.NewMemStore()

	headers := reconcile.BaseHeaders()
	legacy := []string{"Legacy row", "https://a/old", "Stereogum", "not a timestamp"}
	require.NoError(t, store.ReplaceTable(ctx, "June 2025", headers, [][]string{legacy}))

	require.NoError(t, Day(ctx, store, "June 2025", day, loc, headers, []models.Article{
		{Title: "Fresh", Link: "https://a/new", Source: "Pitchfork", Published: published(day)},
	}))

	_, rows, err := store.GetTable(ctx, "June 2025")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, legacy, rows[0])
	assert.Equal(t, "Fresh", rows[1][0])
}
