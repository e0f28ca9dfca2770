package reconcile

import (
	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/models"
)

// KeyFn derives the logical key of a table row given its headers.
type KeyFn func(headers, row []string) string

// ArticleKey is the canonical key function: the (title, link) pair.
func ArticleKey(headers, row []string) string {
	return RowToArticle(headers, row).Key()
}

// TitleKey matches on title alone. Deprecated in favor of ArticleKey; kept
// only for tables written before links were part of the identity.
func TitleKey(headers, row []string) string {
	return cell(row, ColumnIndex(headers, ColTitle))
}

// Merge appends incoming rows to preserved rows, skipping any incoming row
// whose key already exists. Existing rows win over incoming ones; that is
// how captions and approvals already written to a row survive a re-ingest
// of the same article. Within the incoming batch the first occurrence of a
// key wins and later duplicates are dropped silently. Ordering is preserved
// rows first (original order), then surviving incoming rows (batch order);
// the table is never re-sorted. Pre-existing duplicates among preserved
// rows are kept as-is: the merge prevents new duplicates, it does not
// repair historical ones.
func Merge(headers []string, preserved, incoming [][]string, keyFn KeyFn) [][]string {
	seen := make(map[string]bool, len(preserved)+len(incoming))
	for _, row := range preserved {
		seen[keyFn(headers, row)] = true
	}

	final := append([][]string(nil), preserved...)
	for _, row := range incoming {
		key := keyFn(headers, row)
		if seen[key] {
			log.Debug().
				Str("title", cell(row, ColumnIndex(headers, ColTitle))).
				Msg("Skipping duplicate row in merge")
			continue
		}
		seen[key] = true
		final = append(final, row)
	}

	return final
}

// MergeArticles converts an article batch into rows and merges it into the
// preserved set under the canonical key.
func MergeArticles(headers []string, preserved [][]string, incoming []models.Article) [][]string {
	rows := make([][]string, len(incoming))
	for i, a := range incoming {
		rows[i] = ArticleToRow(headers, a)
	}
	return Merge(headers, preserved, rows, ArticleKey)
}
