// Package rank implements the selection stage: ask the language model for
// the day's most promising headlines, validate its answer against the
// ingested batch, and enforce topic diversity across the picks.
package rank

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/llm"
	"inyourbones/newsdesk/internal/models"
)

// Articles beyond this cap are not shown to the model; the prompt has to
// stay within a sane size.
const maxHeadlinesForRanking = 60

// diversityOverlap is the shared-token count at which two titles are
// considered to cover the same topic.
const diversityOverlap = 3

const rankSystemPrompt = "You are a helpful assistant."

// Selector ranks an ingested batch down to the daily top picks.
type Selector struct {
	gen   llm.Generator
	count int
}

// NewSelector creates a Selector choosing `count` articles per run.
func NewSelector(gen llm.Generator, count int) *Selector {
	return &Selector{gen: gen, count: count}
}

// Select returns the top picks for the batch. The model's answer is treated
// as untrusted: returned lines are matched back to real articles, duplicate
// and overlapping picks are discarded, and the remaining pool backfills any
// shortfall under the same diversity constraint.
func (s *Selector) Select(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles to rank")
	}

	input := articles
	if len(input) > maxHeadlinesForRanking {
		input = input[:maxHeadlinesForRanking]
	}

	resp, err := s.gen.Generate(ctx, llm.Request{
		System:      rankSystemPrompt,
		Prompt:      buildRankPrompt(input, s.count),
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking request failed: %w", err)
	}

	selectedTitles := parseRankedTitles(resp)
	log.Debug().Int("returned", len(selectedTitles)).Msg("Model returned headlines")

	seenTitles := make(map[string]bool)
	var picked []models.Article
	var pickedTitles []string

	appendIfDiverse := func(a models.Article) bool {
		if seenTitles[a.Title] {
			return false
		}
		if !diverse(a.Title, pickedTitles) {
			log.Debug().Str("title", a.Title).Msg("Skipping overlapping headline")
			return false
		}
		picked = append(picked, a)
		pickedTitles = append(pickedTitles, a.Title)
		seenTitles[a.Title] = true
		return true
	}

	for _, title := range selectedTitles {
		for _, a := range articles {
			if a.Title == title {
				appendIfDiverse(a)
				break
			}
		}
		if len(picked) >= s.count {
			break
		}
	}

	log.Info().Int("matched", len(picked)).Msg("Validated model selection")

	// Backfill from the remaining pool when the model under-returns.
	if len(picked) < s.count {
		for _, a := range articles {
			if appendIfDiverse(a) && len(picked) >= s.count {
				break
			}
		}
	}

	if len(picked) > s.count {
		picked = picked[:s.count]
	}
	return picked, nil
}

func buildRankPrompt(articles []models.Article, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a music editor for a positive, fan-driven live music publication. "+
		"From the list of music news headlines below, select the %d most exciting, uplifting, and "+
		"buzzworthy ones that would perform well on social media and align with our publication's upbeat tone.\n\n", count)
	b.WriteString("Avoid stories that are primarily negative (e.g. illnesses, arrests, scandals, cancellations). " +
		"Focus on live show announcements, tours, new music, fun moments, and artist milestones.\n\n")
	b.WriteString("Make sure to select a variety of artists, and do not include multiple headlines about the same artist or event.\n\n")
	for _, a := range articles {
		b.WriteString("- ")
		b.WriteString(a.Title)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nReturn exactly %d headlines, each on a new line, using the original wording.\n", count)
	return b.String()
}

// parseRankedTitles extracts headline lines from the model response,
// stripping list bullets and blank lines.
func parseRankedTitles(resp string) []string {
	var titles []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if line != "" {
			titles = append(titles, line)
		}
	}
	return titles
}

// diverse reports whether a candidate title shares fewer than
// diversityOverlap case-insensitive whitespace tokens with every already
// selected title. A cheap topic-overlap heuristic.
func diverse(candidate string, selected []string) bool {
	cand := tokenSet(candidate)
	for _, title := range selected {
		if overlap(cand, tokenSet(title)) >= diversityOverlap {
			return false
		}
	}
	return true
}

func tokenSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		set[tok] = true
	}
	return set
}

func overlap(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if b[tok] {
			n++
		}
	}
	return n
}
