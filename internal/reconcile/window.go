package reconcile

import (
	"time"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/models"
)

// Partition splits existing rows into those preserved across the next write
// and those superseded by the incoming batch. The timestamp is read from the
// Published column and localized before windowPredicate sees it. A row whose
// timestamp cannot be parsed goes to unparseable and is preserved; uncertain
// rows are never dropped, and a row-level failure never aborts the batch.
func Partition(headers []string, rows [][]string, loc *time.Location, windowPredicate func(time.Time) bool) (toPreserve, toDrop, unparseable [][]string) {
	pubIdx := ColumnIndex(headers, ColPublished)

	for _, row := range rows {
		raw := cell(row, pubIdx)
		ts, err := models.ParsePublished(raw)
		if err != nil {
			log.Warn().
				Str("published", raw).
				Err(err).
				Msg("Preserving row with unparseable timestamp")
			unparseable = append(unparseable, row)
			toPreserve = append(toPreserve, row)
			continue
		}

		if windowPredicate(ts.In(loc)) {
			toDrop = append(toDrop, row)
		} else {
			toPreserve = append(toPreserve, row)
		}
	}

	return toPreserve, toDrop, unparseable
}

// SameLocalDay returns a predicate matching timestamps that fall on the same
// calendar day as target. Both sides must already be in the reference zone.
func SameLocalDay(target time.Time) func(time.Time) bool {
	ty, tm, td := target.Date()
	return func(t time.Time) bool {
		y, m, d := t.Date()
		return y == ty && m == tm && d == td
	}
}
