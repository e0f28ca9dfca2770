package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func TestPartitionSplitsOnWindow(t *testing.T) {
	loc := pacific(t)
	headers := []string{"Title", "Link", "Source", "Published"}
	rows := [][]string{
		{"in", "l1", "s", "Sun, 01 Jun 2025 10:00:00 -0700"},
		{"out", "l2", "s", "Mon, 02 Jun 2025 10:00:00 -0700"},
	}

	day := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	keep, drop, unparseable := Partition(headers, rows, loc, SameLocalDay(day))

	require.Len(t, drop, 1)
	assert.Equal(t, "in", drop[0][0])
	require.Len(t, keep, 1)
	assert.Equal(t, "out", keep[0][0])
	assert.Empty(t, unparseable)
}

func TestPartitionLocalizesBeforeComparing(t *testing.T) {
	loc := pacific(t)
	headers := []string{"Title", "Link", "Source", "Published"}
	// 04:00 UTC on June 2 is still June 1 in Pacific time.
	rows := [][]string{{"late", "l1", "s", "2025-06-02T04:00:00Z"}}

	day := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	keep, drop, _ := Partition(headers, rows, loc, SameLocalDay(day))

	assert.Empty(t, keep)
	require.Len(t, drop, 1)
}

func TestPartitionFailsOpenOnUnparseableTimestamps(t *testing.T) {
	loc := pacific(t)
	headers := []string{"Title", "Link", "Source", "Published"}
	rows := [][]string{
		{"good", "l1", "s", "Sun, 01 Jun 2025 10:00:00 -0700"},
		{"bad", "l2", "s", "not a date"},
		{"empty", "l3", "s", ""},
	}

	day := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	keep, drop, unparseable := Partition(headers, rows, loc, SameLocalDay(day))

	require.Len(t, unparseable, 2)
	require.Len(t, drop, 1)
	// The unparseable rows must be preserved regardless of the window.
	require.Len(t, keep, 2)
	assert.Equal(t, "bad", keep[0][0])
	assert.Equal(t, "empty", keep[1][0])
}

func TestPartitionShortRowFailsOpen(t *testing.T) {
	loc := pacific(t)
	headers := []string{"Title", "Link", "Source", "Published"}
	rows := [][]string{{"short", "l1"}}

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)
	keep, _, unparseable := Partition(headers, rows, loc, SameLocalDay(day))

	require.Len(t, keep, 1)
	require.Len(t, unparseable, 1)
}
