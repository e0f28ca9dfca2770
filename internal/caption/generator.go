package caption

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/llm"
	"inyourbones/newsdesk/internal/models"
)

const captionSystemPrompt = "You are a music-savvy, fun social media editor."

const captionPrompt = "Write a short, upbeat social media caption for a music news headline. " +
	"Use a fun and engaging tone, include emojis if appropriate, and make it feel human and fresh. " +
	"Avoid using the phrases 'get ready', 'can't wait', 'don't miss', 'breaking news', or 'mark your calendars' excessively. " +
	"Vary your structure across posts and keep captions under 25 words."

// FallbackCaption is used when every generation attempt fails outright.
// Low text quality must never fail a run.
const FallbackCaption = "🎶 New headline in music — check it out!"

// Generator produces one validated caption per article.
type Generator struct {
	gen     llm.Generator
	tracker *Tracker
	strict  bool
}

// NewGenerator creates a caption generator sharing one per-run tracker.
// In strict mode exhausted retries fall through to the hard fallback instead
// of soft-accepting a violating caption.
func NewGenerator(gen llm.Generator, tracker *Tracker, strict bool) *Generator {
	return &Generator{gen: gen, tracker: tracker, strict: strict}
}

// BuildPrompt assembles the generation prompt for a headline. From the
// third attempt on, an explicit avoid-repetition instruction is appended.
// Pure; attempt is 1-based.
func BuildPrompt(title string, attempt int) string {
	prompt := captionPrompt + "\n\nHeadline: " + title
	if attempt >= 3 {
		prompt += "\nAvoid using any previous structure or phrase pattern."
	}
	return prompt
}

// Caption generates a caption for one article title, retrying up to
// MaxAttempts on anti-repetition violations. Exhaustion degrades to
// soft-accepting the last non-empty candidate, then to the hard fallback.
func (g *Generator) Caption(ctx context.Context, title string) string {
	var lastCandidate string

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		candidate, err := g.gen.Generate(ctx, llm.Request{
			System:      captionSystemPrompt,
			Prompt:      BuildPrompt(title, attempt),
			Temperature: 0.85,
			MaxTokens:   60,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("title", title).
				Msg("Caption generation failed")
			continue
		}

		verdict := Validate(candidate, g.tracker.Snapshot())
		if verdict.OK {
			g.tracker.Record(candidate)
			log.Info().
				Int("attempt", attempt).
				Str("title", title).
				Msg("Caption accepted")
			return candidate
		}

		if strings.TrimSpace(candidate) != "" {
			lastCandidate = candidate
		}
		log.Info().
			Int("attempt", attempt).
			Strs("violations", verdict.Violations).
			Str("title", title).
			Msg("Caption rejected, retrying")
	}

	if lastCandidate != "" && !g.strict {
		g.tracker.Record(lastCandidate)
		log.Warn().
			Str("title", title).
			Msg("Attempts exhausted, soft-accepting last candidate")
		return lastCandidate
	}

	log.Warn().Str("title", title).Msg("Using fallback caption")
	return FallbackCaption
}

// CaptionAll generates captions for a batch in order, sharing the tracker
// so repetition limits apply across the whole run.
func (g *Generator) CaptionAll(ctx context.Context, articles []models.Article) []models.Article {
	out := make([]models.Article, len(articles))
	for i, a := range articles {
		a.Caption = g.Caption(ctx, a.Title)
		out[i] = a
	}
	return out
}
