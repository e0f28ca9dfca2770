// Package scrape implements the ingest stage: fetch the registered RSS
// feeds, keep yesterday's relevant articles, and reconcile them into the
// monthly ingest table and the latest_articles.json artifact.
package scrape

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reddot-watch/feedfetcher"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"inyourbones/newsdesk/internal/database"
	"inyourbones/newsdesk/internal/models"
)

const maxFeedFailures = 10

// Scraper fetches registered feeds and filters their items down to
// yesterday's batch.
type Scraper struct {
	db          *database.DB
	fetcher     *feedfetcher.FeedFetcher
	loc         *time.Location
	excluded    []string
	maxResults  int
	workerCount int
}

// New creates a Scraper. excluded is the lowercased keyword list from
// filters.json; a title containing any of them is dropped.
func New(db *database.DB, loc *time.Location, excluded []string, maxResults, workerCount int) *Scraper {
	if workerCount <= 0 {
		workerCount = 1
	}

	fetcher := feedfetcher.NewFeedFetcher(feedfetcher.Config{
		UserAgent:            "NewsdeskBot/1.0",
		RequestTimeout:       15 * time.Second,
		MaxItems:             100,
		MaxHeadingLength:     200,
		MaxAge:               48 * time.Hour,
		FutureDriftTolerance: 12 * time.Hour,
	})

	lowered := make([]string, len(excluded))
	for i, kw := range excluded {
		lowered[i] = strings.ToLower(kw)
	}

	return &Scraper{
		db:          db,
		fetcher:     fetcher,
		loc:         loc,
		excluded:    lowered,
		maxResults:  maxResults,
		workerCount: workerCount,
	}
}

// Relevant reports whether a title passes the exclude-keyword filter.
func (s *Scraper) Relevant(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range s.excluded {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// FetchYesterday pulls every active feed and returns the articles published
// during the day before `now` in the reference zone, deduplicated by title
// within the batch, sorted reverse-chronologically, capped at maxResults.
// Individual feed failures are recorded on the registry row and never abort
// the run.
func (s *Scraper) FetchYesterday(ctx context.Context, now time.Time) ([]models.Article, error) {
	feeds, err := s.db.ActiveFeeds(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("feeds", len(feeds)).Msg("Loaded active feeds")

	yesterday := now.In(s.loc).AddDate(0, 0, -1)
	sameDay := func(t time.Time) bool {
		y1, m1, d1 := t.In(s.loc).Date()
		y2, m2, d2 := yesterday.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}

	var (
		mu       sync.Mutex
		articles []models.Article
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, 2*time.Minute)
			defer cancel()

			log.Info().
				Int64("feed_id", feed.ID).
				Str("url", feed.URL).
				Msg("Fetching feed")

			items, fetchErr := s.fetcher.FetchAndProcess(fetchCtx, feed.URL)
			s.recordFetchResult(gctx, feed, fetchErr)
			if fetchErr != nil {
				log.Warn().
					Int64("feed_id", feed.ID).
					Str("url", feed.URL).
					Err(fetchErr).
					Msg("Feed fetch failed")
				return nil
			}

			source := feed.URL
			if feed.Source.Valid {
				source = feed.Source.String
			}

			var picked []models.Article
			for _, item := range items {
				if item.URL == "" || item.Headline == "" {
					continue
				}
				if !sameDay(item.PublishedAt) || !s.Relevant(item.Headline) {
					continue
				}
				picked = append(picked, models.Article{
					Title:     strings.TrimSpace(item.Headline),
					Link:      item.URL,
					Source:    source,
					Published: item.PublishedAt.In(s.loc).Format(time.RFC1123Z),
				})
			}

			if len(picked) > 0 {
				mu.Lock()
				articles = append(articles, picked...)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	articles = dedupeByTitle(articles)
	sort.SliceStable(articles, func(i, j int) bool {
		ti, errI := models.ParsePublished(articles[i].Published)
		tj, errJ := models.ParsePublished(articles[j].Published)
		if errI != nil || errJ != nil {
			return false
		}
		return ti.After(tj)
	})

	if s.maxResults > 0 && len(articles) > s.maxResults {
		articles = articles[:s.maxResults]
	}

	log.Info().
		Int("articles", len(articles)).
		Str("day", yesterday.Format("2006-01-02")).
		Msg("Fetched yesterday's articles")
	return articles, nil
}

// recordFetchResult mirrors the registry bookkeeping: failures accumulate
// until the feed is marked failed; any success resets the count.
func (s *Scraper) recordFetchResult(ctx context.Context, feed models.Feed, fetchErr error) {
	updateCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	now := time.Now()
	var err error
	if fetchErr != nil {
		feed.FailuresCount++
		feed.LastError = sql.NullString{String: fetchErr.Error(), Valid: true}
		status := feed.Status
		if feed.FailuresCount > maxFeedFailures {
			status = "failed"
		}
		_, err = s.db.ExecContext(updateCtx, `
			UPDATE feeds
			SET status = ?, failures_count = ?, last_error = ?, last_retrieved_at = ?, updated_at = ?
			WHERE id = ?`,
			status, feed.FailuresCount, feed.LastError, now, now, feed.ID)
	} else {
		_, err = s.db.ExecContext(updateCtx, `
			UPDATE feeds
			SET status = 'active', failures_count = 0, last_error = NULL, last_retrieved_at = ?, updated_at = ?
			WHERE id = ?`,
			now, now, feed.ID)
	}

	if err != nil {
		log.Error().
			Err(err).
			Int64("feed_id", feed.ID).
			Msg("Failed to update feed status")
	}
}

// dedupeByTitle keeps the first occurrence of each title. The ingest stage
// has always deduplicated by title only; link joins the key at merge time.
func dedupeByTitle(articles []models.Article) []models.Article {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a)
	}
	return out
}
