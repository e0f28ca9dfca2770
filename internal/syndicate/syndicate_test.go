package syndicate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

var testChannel = ChannelInfo{
	Title:       "InYourBones Daily Music News",
	Link:        "https://inyourbones.live/",
	Description: "Daily music news picks",
}

func TestFilterDropsVetoedKeepsPending(t *testing.T) {
	articles := []models.Article{
		{Title: "Approved", Approval: models.ApprovalApproved},
		{Title: "Vetoed", Approval: models.ApprovalVetoed, Vetoed: true},
		{Title: "Pending"},
	}

	kept := Filter(articles)
	require.Len(t, kept, 2)
	assert.Equal(t, "Approved", kept[0].Title)
	assert.Equal(t, "Pending", kept[1].Title)
}

func TestRenderItemFields(t *testing.T) {
	now := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	articles := []models.Article{
		{
			Title:     "Turnstile share surprise EP",
			Link:      "https://stereogum.com/turnstile-ep",
			Source:    "Stereogum",
			Published: "Mon, 02 Jun 2025 09:30:00 -0700",
			Caption:   "New Turnstile! 🎸",
			Image:     "https://img.example/turnstile.jpg",
		},
	}

	rss, err := Render(testChannel, articles, now)
	require.NoError(t, err)

	assert.Contains(t, rss, "<title>InYourBones Daily Music News</title>")
	assert.Contains(t, rss, "<title>Turnstile share surprise EP</title>")
	assert.Contains(t, rss, "<link>https://stereogum.com/turnstile-ep</link>")
	// The item link doubles as its guid and the caption as the description.
	assert.Contains(t, rss, "https://stereogum.com/turnstile-ep</guid>")
	assert.Contains(t, rss, "New Turnstile! 🎸")
	assert.Contains(t, rss, `url="https://img.example/turnstile.jpg"`)
}

func TestRenderToleratesBadPublishDate(t *testing.T) {
	now := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	articles := []models.Article{
		{Title: "No date", Link: "https://a/1", Published: "sometime"},
	}

	rss, err := Render(testChannel, articles, now)
	require.NoError(t, err)
	assert.Contains(t, rss, "<title>No date</title>")
}

func TestWriteFiltersAndCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "feed.xml")
	now := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	articles := []models.Article{
		{Title: "Keep", Link: "https://a/1", Approval: models.ApprovalApproved},
		{Title: "Drop", Link: "https://a/2", Approval: models.ApprovalVetoed, Vetoed: true},
	}

	require.NoError(t, Write(path, testChannel, articles, now))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Keep</title>")
	assert.NotContains(t, string(data), "<title>Drop</title>")
}

func TestHistoryReadsSelectsTablesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemStore()
	headers := reconcile.CurrentSchema.Columns

	mayRows := [][]string{
		reconcile.ArticleToRow(headers, models.Article{
			Title: "May pick", Link: "https://a/may", Published: "Thu, 15 May 2025 10:00:00 -0700",
		}),
	}
	juneRows := [][]string{
		reconcile.ArticleToRow(headers, models.Article{
			Title: "June pick", Link: "https://a/june", Published: "Mon, 02 Jun 2025 10:00:00 -0700",
		}),
	}
	require.NoError(t, store.ReplaceTable(ctx, "May 2025 (selects)", headers, mayRows))
	require.NoError(t, store.ReplaceTable(ctx, "June 2025 (selects)", headers, juneRows))
	// Ingest tables never reach the public feed.
	require.NoError(t, store.ReplaceTable(ctx, "June 2025", headers, juneRows))

	articles, err := History(ctx, store)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "June pick", articles[0].Title)
	assert.Equal(t, "May pick", articles[1].Title)
}

func TestHistoryThenWriteExcludesVetoed(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemStore()
	headers := reconcile.CurrentSchema.Columns

	rows := [][]string{
		reconcile.ArticleToRow(headers, models.Article{
			Title: "Kept", Link: "https://a/1", Published: "Mon, 02 Jun 2025 10:00:00 -0700",
			Approval: models.ApprovalApproved,
		}),
		reconcile.ArticleToRow(headers, models.Article{
			Title: "Cut", Link: "https://a/2", Published: "Mon, 02 Jun 2025 11:00:00 -0700",
			Approval: models.ApprovalVetoed,
		}),
	}
	require.NoError(t, store.ReplaceTable(ctx, "June 2025 (selects)", headers, rows))

	articles, err := History(ctx, store)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	path := filepath.Join(t.TempDir(), "feed_all.xml")
	require.NoError(t, Write(path, testChannel, articles, time.Now()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<title>Kept</title>"))
	assert.False(t, strings.Contains(string(data), "<title>Cut</title>"))
}
