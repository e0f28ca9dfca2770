// Package pipeline sequences the editorial stages: scrape, select, caption,
// recap, veto, syndicate. Stages run strictly one after another and hand
// results to each other through JSON artifacts and the row store; a stage
// whose input artifact is missing exits early instead of crashing.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/approval"
	"inyourbones/newsdesk/internal/artifact"
	"inyourbones/newsdesk/internal/caption"
	"inyourbones/newsdesk/internal/config"
	"inyourbones/newsdesk/internal/llm"
	"inyourbones/newsdesk/internal/models"
	"inyourbones/newsdesk/internal/publish"
	"inyourbones/newsdesk/internal/rank"
	"inyourbones/newsdesk/internal/reconcile"
	"inyourbones/newsdesk/internal/rowstore"
	"inyourbones/newsdesk/internal/scrape"
	"inyourbones/newsdesk/internal/sms"
	"inyourbones/newsdesk/internal/syndicate"
)

// Pipeline wires the stages to their collaborators. Only the dependencies a
// given stage uses need to be set; invoking a stage with a missing
// dependency returns an error rather than panicking.
type Pipeline struct {
	Cfg     *config.Config
	Store   rowstore.Store
	Scraper *scrape.Scraper
	Gen     llm.Generator
	SMS     *sms.TwilioClient
	Loc     *time.Location
	Now     func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Scrape runs the ingest stage: fetch yesterday's articles, write the
// latest_articles.json artifact, and reconcile the batch into the monthly
// ingest table.
func (p *Pipeline) Scrape(ctx context.Context) error {
	if p.Scraper == nil {
		return fmt.Errorf("scraper is not configured")
	}

	now := p.now().In(p.Loc)
	articles, err := p.Scraper.FetchYesterday(ctx, now)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	if err := artifact.Save(p.Cfg.ArtifactPath(config.LatestArticlesFile), articles); err != nil {
		return err
	}

	yesterday := now.AddDate(0, 0, -1)
	table := rowstore.IngestTableName(now)
	if err := publish.Day(ctx, p.Store, table, yesterday, p.Loc, reconcile.BaseHeaders(), articles); err != nil {
		return fmt.Errorf("failed to publish ingest batch: %w", err)
	}

	log.Info().Int("articles", len(articles)).Str("table", table).Msg("Scrape stage complete")
	return nil
}

// Select runs the selection stage: rank the ingested batch, write
// top_articles.json, and reconcile the picks into the selects table for
// today.
func (p *Pipeline) Select(ctx context.Context) error {
	if p.Gen == nil {
		return fmt.Errorf("text generator is not configured")
	}

	articles, err := artifact.Load(p.Cfg.ArtifactPath(config.LatestArticlesFile))
	if err != nil {
		return err
	}

	selector := rank.NewSelector(p.Gen, p.Cfg.TopCount)
	picks, err := selector.Select(ctx, articles)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if err := artifact.Save(p.Cfg.ArtifactPath(config.TopArticlesFile), picks); err != nil {
		return err
	}

	now := p.now().In(p.Loc)
	table := rowstore.SelectsTableName(now)
	if err := publish.Day(ctx, p.Store, table, now, p.Loc, reconcile.BaseHeaders(), picks); err != nil {
		return fmt.Errorf("failed to publish selection: %w", err)
	}

	log.Info().Int("picks", len(picks)).Str("table", table).Msg("Selection stage complete")
	return nil
}

// Caption runs the caption stage: generate a validated caption per pick,
// write top_articles_with_captions.json, and fill the Caption column of the
// matching selects rows.
func (p *Pipeline) Caption(ctx context.Context) error {
	if p.Gen == nil {
		return fmt.Errorf("text generator is not configured")
	}

	picks, err := artifact.Load(p.Cfg.ArtifactPath(config.TopArticlesFile))
	if err != nil {
		return err
	}

	tracker := caption.NewTracker()
	gen := caption.NewGenerator(p.Gen, tracker, p.Cfg.CaptionStrict)
	captioned := gen.CaptionAll(ctx, picks)

	if err := artifact.Save(p.Cfg.ArtifactPath(config.CaptionedFile), captioned); err != nil {
		return err
	}

	if err := p.syncCaptions(ctx, captioned); err != nil {
		// The artifact is the stage's contract with the next stage; the
		// sheet column is best effort and retried on the next run.
		log.Error().Err(err).Msg("Failed to sync captions to the selects table")
	}

	log.Info().Int("articles", len(captioned)).Msg("Caption stage complete")
	return nil
}

// syncCaptions writes the Caption column for the batch's rows in the
// current selects table, locating rows by logical key.
func (p *Pipeline) syncCaptions(ctx context.Context, batch []models.Article) error {
	table := rowstore.SelectsTableName(p.now().In(p.Loc))

	headers, rows, err := p.Store.GetTable(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read selects table: %w", err)
	}

	headers, rows = reconcile.Normalize(headers, rows, []string{reconcile.ColCaption})
	if err := p.Store.ReplaceTable(ctx, table, headers, rows); err != nil {
		return fmt.Errorf("failed to normalize selects table: %w", err)
	}

	captionIdx := reconcile.ColumnIndex(headers, reconcile.ColCaption)

	byKey := make(map[string]models.Article, len(batch))
	for _, a := range batch {
		byKey[a.Key()] = a
	}

	updated := 0
	for i, row := range rows {
		a, ok := byKey[reconcile.ArticleKey(headers, row)]
		if !ok {
			continue
		}
		if err := p.Store.UpdateCell(ctx, table, i, captionIdx, a.Caption); err != nil {
			return fmt.Errorf("failed to update caption for row %d: %w", i, err)
		}
		updated++
	}

	log.Info().Str("table", table).Int("updated", updated).Msg("Caption column synced")
	return nil
}

// Syndicate emits the public feed for the current reviewed batch, read from
// the captioned artifact.
func (p *Pipeline) Syndicate(_ context.Context) error {
	articles, err := artifact.Load(p.Cfg.ArtifactPath(config.CaptionedFile))
	if err != nil {
		return err
	}

	info := syndicate.ChannelInfo{
		Title:       p.Cfg.FeedTitle,
		Link:        p.Cfg.SiteURL,
		Description: p.Cfg.FeedDescription,
	}
	path := p.Cfg.ArtifactPath(config.FeedOutputFile)
	if err := syndicate.Write(path, info, articles, p.now().In(p.Loc)); err != nil {
		return fmt.Errorf("failed to write output feed: %w", err)
	}

	log.Info().Int("articles", len(articles)).Str("path", path).Msg("Syndicate stage complete")
	return nil
}

// Recap sends the numbered SMS digest of the captioned picks.
func (p *Pipeline) Recap(ctx context.Context) error {
	if p.SMS == nil {
		return fmt.Errorf("SMS client is not configured")
	}

	articles, err := artifact.Load(p.Cfg.ArtifactPath(config.CaptionedFile))
	if err != nil {
		return err
	}

	messages := sms.FormatRecap(articles, p.now().In(p.Loc))
	for i, body := range messages {
		if err := p.SMS.Send(ctx, p.Cfg.TwilioFrom, p.Cfg.TwilioTo, body); err != nil {
			return fmt.Errorf("failed to send recap message %d: %w", i+1, err)
		}
	}

	log.Info().Int("messages", len(messages)).Msg("Recap stage complete")
	return nil
}

// Veto polls the reply channel for a veto directive and reconciles the
// resulting approval state into both stores.
func (p *Pipeline) Veto(ctx context.Context) error {
	if p.SMS == nil {
		return fmt.Errorf("SMS client is not configured")
	}

	messages, err := p.SMS.FetchRecentMessages(ctx, p.Cfg.TwilioFrom, p.Cfg.TwilioTo, 10)
	if err != nil {
		return fmt.Errorf("failed to poll reply channel: %w", err)
	}

	var ordinals []int
	for _, msg := range messages {
		if found := approval.ParseVetoes(msg.Body); len(found) > 0 {
			log.Info().Str("body", msg.Body).Ints("ordinals", found).Msg("Found veto reply")
			ordinals = found
			break
		}
	}

	if len(ordinals) == 0 {
		log.Info().Msg("No veto directives found")
		return nil
	}

	rec := approval.NewReconciler(p.Store, p.Cfg.ArtifactPath(config.CaptionedFile), p.Loc)
	if _, err := rec.Apply(ctx, ordinals, p.now()); err != nil {
		return fmt.Errorf("veto reconciliation incomplete: %w", err)
	}

	log.Info().Ints("ordinals", ordinals).Msg("Veto stage complete")
	return nil
}

type stage struct {
	name string
	fn   func(context.Context) error
}

// stages is the automated sequence a combined run executes: from ingest
// through to the published output feed.
func (p *Pipeline) stages() []stage {
	return []stage{
		{"scrape", p.Scrape},
		{"select", p.Select},
		{"caption", p.Caption},
		{"syndicate", p.Syndicate},
	}
}

// Run executes the automated stages in order, ending with the output feed.
// Recap and veto involve a human and are invoked separately.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, s := range p.stages() {
		log.Info().Str("stage", s.name).Msg("Starting stage")
		start := time.Now()
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("stage %s failed: %w", s.name, err)
		}
		log.Info().
			Str("stage", s.name).
			Dur("duration", time.Since(start)).
			Msg("Stage finished")
	}
	return nil
}
