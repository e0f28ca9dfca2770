// Package reconcile implements the state reconciliation engine: schema
// normalization, retention-window partitioning, and duplicate-free merging
// of pipeline batches into the tabular system of record. Every stage reads
// the full table, runs it through this package, and writes the whole result
// back; the re-derivation from freshly read state is what makes the blind
// full-table replace safe against edits made between runs.
package reconcile

import (
	"strings"

	"inyourbones/newsdesk/internal/models"
)

// Column names as they appear in table header rows. The set has grown over
// the life of the store (3, 4, 5, 6, 7 columns across revisions); readers
// must resolve columns by name per call, never by fixed offset.
const (
	ColTitle     = "Title"
	ColLink      = "Link"
	ColSource    = "Source"
	ColPublished = "Published"
	ColCaption   = "Caption"
	ColImage     = "Image"
	ColApproval  = "Approval"
)

// Schema is the versioned descriptor of the full known column set, in
// canonical order. Normalization consults this rather than inferring
// structure from whatever happens to be in row 1.
type Schema struct {
	Version int
	Columns []string
}

// CurrentSchema describes the present column set. Columns are only ever
// appended; removing or reordering one is a breaking change for every
// existing table.
var CurrentSchema = Schema{
	Version: 3,
	Columns: []string{ColTitle, ColLink, ColSource, ColPublished, ColCaption, ColImage, ColApproval},
}

// BaseHeaders returns the minimal header set used when creating a table.
// Later stages grow it through normalization.
func BaseHeaders() []string {
	return []string{ColTitle, ColLink, ColSource, ColPublished}
}

// Normalize guarantees that every name in required appears in the header row
// and that every data row has a value (possibly empty) for every header.
// Missing headers are appended on the right; existing headers are never
// reordered or removed, and rows are never truncated. This operation cannot
// fail: malformed short rows are treated as rows lacking the trailing
// columns and padded.
func Normalize(headers []string, rows [][]string, required []string) ([]string, [][]string) {
	outHeaders := append([]string(nil), headers...)
	for _, name := range required {
		if ColumnIndex(outHeaders, name) < 0 {
			outHeaders = append(outHeaders, name)
		}
	}

	outRows := make([][]string, len(rows))
	for i, row := range rows {
		padded := append([]string(nil), row...)
		for len(padded) < len(outHeaders) {
			padded = append(padded, "")
		}
		outRows[i] = padded
	}

	return outHeaders, outRows
}

// ColumnIndex resolves a column name to its index, case-insensitively.
// Returns -1 when absent.
func ColumnIndex(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// cell returns row[idx] or "" when the row is too short or idx is -1.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// RowToArticle converts a table row into an Article using the header row to
// locate columns.
func RowToArticle(headers, row []string) models.Article {
	return models.Article{
		Title:     cell(row, ColumnIndex(headers, ColTitle)),
		Link:      cell(row, ColumnIndex(headers, ColLink)),
		Source:    cell(row, ColumnIndex(headers, ColSource)),
		Published: cell(row, ColumnIndex(headers, ColPublished)),
		Caption:   cell(row, ColumnIndex(headers, ColCaption)),
		Image:     cell(row, ColumnIndex(headers, ColImage)),
		Approval:  models.ParseApproval(cell(row, ColumnIndex(headers, ColApproval))),
	}
}

// ArticleToRow converts an Article into a row shaped by the header row.
// Headers the article has no value for stay empty.
func ArticleToRow(headers []string, a models.Article) []string {
	row := make([]string, len(headers))
	set := func(name, value string) {
		if idx := ColumnIndex(headers, name); idx >= 0 {
			row[idx] = value
		}
	}
	set(ColTitle, a.Title)
	set(ColLink, a.Link)
	set(ColSource, a.Source)
	set(ColPublished, a.Published)
	set(ColCaption, a.Caption)
	set(ColImage, a.Image)
	set(ColApproval, string(a.Approval))
	return row
}
