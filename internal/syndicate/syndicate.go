// Package syndicate emits the public RSS feed from the reviewed article
// set. A veto excludes; pending review does not, so an unreviewed article
// stays visible rather than silently hidden.
package syndicate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
)

// ChannelInfo holds the feed's channel metadata.
type ChannelInfo struct {
	Title       string
	Link        string
	Description string
}

// Filter drops vetoed articles, keeping approved and pending ones.
func Filter(articles []models.Article) []models.Article {
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.Vetoed || !a.Approval.Included() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Render builds the RSS document for the given articles.
func Render(info ChannelInfo, articles []models.Article, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       info.Title,
		Link:        &feeds.Link{Href: info.Link},
		Description: info.Description,
		Created:     now.UTC(),
	}

	for _, a := range articles {
		item := &feeds.Item{
			Title:       a.Title,
			Link:        &feeds.Link{Href: a.Link},
			Id:          a.Link,
			Description: a.Caption,
		}
		if ts, err := models.ParsePublished(a.Published); err == nil {
			item.Created = ts
		} else {
			log.Warn().
				Str("title", a.Title).
				Str("published", a.Published).
				Msg("Emitting feed item without publish date")
		}
		if a.Image != "" {
			item.Enclosure = &feeds.Enclosure{Url: a.Image, Type: "image/jpeg", Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render RSS: %w", err)
	}
	return rss, nil
}

// Write renders the filtered articles and writes the document to path.
func Write(path string, info ChannelInfo, articles []models.Article, now time.Time) error {
	included := Filter(articles)

	rss, err := Render(info, included, now)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(rss), 0644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("items", len(included)).
		Int("excluded", len(articles)-len(included)).
		Msg("Syndication feed written")
	return nil
}

// History collects every article from all selects tables in the store,
// newest first. Vetoed entries are dropped later at render time. Backs the
// all-history output mode.
func History(ctx context.Context, store rowstore.Store) ([]models.Article, error) {
	tables, err := store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var articles []models.Article
	for _, table := range tables {
		if !strings.HasSuffix(table, " (selects)") {
			continue
		}
		headers, rows, err := store.GetTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to read table %q: %w", table, err)
		}
		for _, row := range rows {
			articles = append(articles, reconcile.RowToArticle(headers, row))
		}
	}

	sort.SliceStable(articles, func(i, j int) bool {
		ti, errI := models.ParsePublished(articles[i].Published)
		tj, errJ := models.ParsePublished(articles[j].Published)
		if errI != nil || errJ != nil {
			return false
		}
		return ti.After(tj)
	})

	return articles, nil
}
