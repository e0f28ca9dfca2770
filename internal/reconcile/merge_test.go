package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inyourbones/newsdesk/internal/models"
)

func TestMergeExistingWinsOverIncoming(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published", "Caption", "Image", "Approval"}
	preserved := [][]string{
		{"A", "l1", "", "2025-06-01", "capX", "", ""},
		{"B", "l2", "", "2025-06-01", "capY", "", ""},
	}
	incoming := []models.Article{{Title: "A", Link: "l1", Published: "2025-06-01"}}

	final := MergeArticles(headers, preserved, incoming)

	require.Len(t, final, 2)
	// Row A keeps its human-written caption; the re-ingest does not clobber it.
	assert.Equal(t, "capX", final[0][4])
	assert.Equal(t, "capY", final[1][4])
}

func TestMergeIsIdempotent(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published"}
	preserved := [][]string{{"A", "l1", "s", "2025-06-01"}}
	incoming := []models.Article{
		{Title: "B", Link: "l2", Published: "2025-06-02"},
		{Title: "C", Link: "l3", Published: "2025-06-02"},
	}

	once := MergeArticles(headers, preserved, incoming)
	twice := MergeArticles(headers, once, incoming)

	assert.Equal(t, once, twice)
	assert.Len(t, once, 3)
}

func TestMergeFirstOccurrenceWinsWithinBatch(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published"}
	incoming := []models.Article{
		{Title: "A", Link: "l1", Source: "first"},
		{Title: "A", Link: "l1", Source: "second"},
		{Title: "A", Link: "other-link", Source: "third"},
	}

	final := MergeArticles(headers, nil, incoming)

	require.Len(t, final, 2)
	assert.Equal(t, "first", final[0][2])
	// Same title under a different link is a different logical key.
	assert.Equal(t, "third", final[1][2])
}

func TestMergeNoDuplicateKeysFromIncoming(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published"}
	preserved := [][]string{{"X", "lx", "s", "2025-06-01"}}
	incoming := []models.Article{
		{Title: "X", Link: "lx"},
		{Title: "Y", Link: "ly"},
		{Title: "Y", Link: "ly"},
	}

	final := MergeArticles(headers, preserved, incoming)

	seen := map[string]int{}
	for _, row := range final {
		seen[ArticleKey(headers, row)]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "key %q duplicated", key)
	}
}

func TestMergePreservesOrdering(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published"}
	preserved := [][]string{
		{"old2", "l2", "s", "2025-05-30"},
		{"old1", "l1", "s", "2025-05-31"},
	}
	incoming := []models.Article{
		{Title: "new1", Link: "n1"},
		{Title: "new2", Link: "n2"},
	}

	final := MergeArticles(headers, preserved, incoming)

	require.Len(t, final, 4)
	assert.Equal(t, "old2", final[0][0])
	assert.Equal(t, "old1", final[1][0])
	assert.Equal(t, "new1", final[2][0])
	assert.Equal(t, "new2", final[3][0])
}

func TestMergeKeepsPreexistingDuplicates(t *testing.T) {
	headers := []string{"Title", "Link", "Source", "Published"}
	preserved := [][]string{
		{"dup", "l1", "a", "2025-06-01"},
		{"dup", "l1", "b", "2025-06-01"},
	}

	final := Merge(headers, preserved, nil, ArticleKey)

	// Historical corruption is kept as-is; only forward duplicates are fixed.
	assert.Len(t, final, 2)
}

func TestTitleKeyIgnoresLink(t *testing.T) {
	headers := []string{"Title", "Link"}
	assert.Equal(t,
		TitleKey(headers, []string{"A", "l1"}),
		TitleKey(headers, []string{"A", "l2"}))
}
