package approval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inyourbones/newsdesk/internal/artifact"
	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
	"inyourbones/newsdesk/internal/syndicate"
)

func TestParseVetoes(t *testing.T) {
	tests := []struct {
		body string
		want []int
	}{
		{"no 2 and no 4", []int{2, 4}},
		{"NO 3", []int{3}},
		{"No2 no 2 NO 2", []int{2}},
		{"no 5, no 1", []int{1, 5}},
		{"looks great, keep them all", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseVetoes(tt.body)
		if tt.want == nil {
			assert.Empty(t, got, "body %q", tt.body)
		} else {
			assert.Equal(t, tt.want, got, "body %q", tt.body)
		}
	}
}

func batch(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			Title:   []string{"One", "Two", "Three", "Four", "Five"}[i],
			Link:    []string{"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5"}[i],
			Source:  "Stereogum",
			Caption: "A caption",
		}
	}
	return out
}

func TestApplyVetoesMarksOrdinalsAndApprovesRest(t *testing.T) {
	out := ApplyVetoes(batch(5), []int{2, 4})

	require.Len(t, out, 5)
	for i, a := range out {
		if i == 1 || i == 3 {
			assert.True(t, a.Vetoed, "article %d", i+1)
			assert.Equal(t, models.ApprovalVetoed, a.Approval)
		} else {
			assert.False(t, a.Vetoed, "article %d", i+1)
			assert.Equal(t, models.ApprovalApproved, a.Approval)
		}
	}

	// Vetoed articles never reach the syndicated feed.
	kept := syndicate.Filter(out)
	require.Len(t, kept, 3)
	for _, a := range kept {
		assert.False(t, a.Vetoed)
	}
}

func TestApplyVetoesIsIdempotent(t *testing.T) {
	once := ApplyVetoes(batch(5), []int{2, 4})
	twice := ApplyVetoes(once, []int{2, 4})
	assert.Equal(t, once, twice)
}

func TestApplyVetoesIgnoresOutOfRangeOrdinals(t *testing.T) {
	out := ApplyVetoes(batch(3), []int{0, 2, 7})

	assert.False(t, out[0].Vetoed)
	assert.True(t, out[1].Vetoed)
	assert.False(t, out[2].Vetoed)
}

func TestApplyVetoesEmptyOrdinalsApprovesEverything(t *testing.T) {
	out := ApplyVetoes(batch(3), nil)
	for _, a := range out {
		assert.Equal(t, models.ApprovalApproved, a.Approval)
		assert.False(t, a.Vetoed)
	}
}

func TestReconcilerAppliesToBothSinks(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, loc)

	jsonPath := filepath.Join(t.TempDir(), "top_articles.json")
	require.NoError(t, artifact.Save(jsonPath, batch(5)))

	store := rowstore.NewMemStore()
	table := rowstore.SelectsTableName(now)
	headers := reconcile.BaseHeaders()
	headers = append(headers, reconcile.ColCaption)
	var rows [][]string
	// An older row from a previous day shares the table.
	older := models.Article{Title: "Old pick", Link: "https://a/old", Source: "Pitchfork", Published: "Sun, 01 Jun 2025 10:00:00 -0700"}
	rows = append(rows, reconcile.ArticleToRow(headers, older))
	for _, a := range batch(5) {
		rows = append(rows, reconcile.ArticleToRow(headers, a))
	}
	require.NoError(t, store.ReplaceTable(ctx, table, headers, rows))

	r := NewReconciler(store, jsonPath, loc)
	updated, err := r.Apply(ctx, []int{2, 4}, now)
	require.NoError(t, err)
	require.Len(t, updated, 5)

	// JSON snapshot reflects the decision.
	saved, err := artifact.Load(jsonPath)
	require.NoError(t, err)
	assert.True(t, saved[1].Vetoed)
	assert.True(t, saved[3].Vetoed)
	assert.False(t, saved[0].Vetoed)

	// Table gained the Approval column and only batch rows were touched.
	gotHeaders, gotRows, err := store.GetTable(ctx, table)
	require.NoError(t, err)
	idx := reconcile.ColumnIndex(gotHeaders, reconcile.ColApproval)
	require.GreaterOrEqual(t, idx, 0)

	assert.Equal(t, "", gotRows[0][idx], "row outside the batch stays pending")
	assert.Equal(t, string(models.ApprovalApproved), gotRows[1][idx])
	assert.Equal(t, string(models.ApprovalVetoed), gotRows[2][idx])
	assert.Equal(t, string(models.ApprovalApproved), gotRows[3][idx])
	assert.Equal(t, string(models.ApprovalVetoed), gotRows[4][idx])
	assert.Equal(t, string(models.ApprovalApproved), gotRows[5][idx])
}

func TestReconcilerApplyIsRepeatable(t *testing.T) {
	ctx := context.Background()
	loc := time.UTC
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, loc)

	jsonPath := filepath.Join(t.TempDir(), "top_articles.json")
	require.NoError(t, artifact.Save(jsonPath, batch(3)))

	store := rowstore.NewMemStore()
	table := rowstore.SelectsTableName(now)
	headers := reconcile.BaseHeaders()
	var rows [][]string
	for _, a := range batch(3) {
		rows = append(rows, reconcile.ArticleToRow(headers, a))
	}
	require.NoError(t, store.ReplaceTable(ctx, table, headers, rows))

	r := NewReconciler(store, jsonPath, loc)
	first, err := r.Apply(ctx, []int{1}, now)
	require.NoError(t, err)
	second, err := r.Apply(ctx, []int{1}, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, gotRows, err := store.GetTable(ctx, table)
	require.NoError(t, err)
	require.Len(t, gotRows, 3)
}
