// Package caption implements the caption-generation stage: bounded retries
// against the text-generation service, validated by per-run anti-repetition
// counters so a day's posts do not all open the same way.
package caption

import (
	"fmt"
	"regexp"
	"strings"
)

// LimitedPhrases are overused marketing phrases whose appearances are
// rationed per run.
var LimitedPhrases = []string{
	"get ready",
	"can't wait",
	"don't miss",
	"breaking news",
	"mark your calendars",
}

// Usage thresholds. A phrase or opening at its max is rejected on the next
// occurrence.
const (
	MaxTotalPhraseUsage    = 2
	MaxPositionPhraseUsage = 2
	MaxIntroUsage          = 2
	MaxAttempts            = 5
)

// Position buckets a phrase occurrence by its character offset in the text.
type Position string

const (
	PositionStart  Position = "start"
	PositionMiddle Position = "middle"
	PositionEnd    Position = "end"
)

const (
	startThreshold  = 30
	middleThreshold = 60
)

var wordRe = regexp.MustCompile(`\w+`)

// Tracker accumulates phrase and opening usage over one pipeline run.
// It is constructed per run and passed by reference into the stage; nothing
// leaks across runs.
type Tracker struct {
	phraseTotals   map[string]int
	phrasePosition map[string]map[Position]int
	intros         map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		phraseTotals:   make(map[string]int),
		phrasePosition: make(map[string]map[Position]int),
		intros:         make(map[string]int),
	}
}

// Snapshot is an immutable copy of the tracker's counters, taken before a
// validation pass so the check is a pure function of (candidate, snapshot).
type Snapshot struct {
	PhraseTotals   map[string]int
	PhrasePosition map[string]map[Position]int
	Intros         map[string]int
}

// Snapshot copies the current counters.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		PhraseTotals:   make(map[string]int, len(t.phraseTotals)),
		PhrasePosition: make(map[string]map[Position]int, len(t.phrasePosition)),
		Intros:         make(map[string]int, len(t.intros)),
	}
	for k, v := range t.phraseTotals {
		snap.PhraseTotals[k] = v
	}
	for k, positions := range t.phrasePosition {
		cp := make(map[Position]int, len(positions))
		for p, v := range positions {
			cp[p] = v
		}
		snap.PhrasePosition[k] = cp
	}
	for k, v := range t.intros {
		snap.Intros[k] = v
	}
	return snap
}

// Record books the phrases and opening of an accepted caption.
func (t *Tracker) Record(caption string) {
	for _, occ := range phraseOccurrences(caption) {
		t.phraseTotals[occ.Phrase]++
		if t.phrasePosition[occ.Phrase] == nil {
			t.phrasePosition[occ.Phrase] = make(map[Position]int)
		}
		t.phrasePosition[occ.Phrase][occ.Position]++
	}
	if intro := introKey(caption); intro != "" {
		t.intros[intro]++
	}
}

// Occurrence is one limited phrase found in a caption, with its position.
type Occurrence struct {
	Phrase   string
	Position Position
}

// phraseOccurrences finds every limited phrase in the caption. The text is
// lowercased and whitespace-normalized first so positions are stable.
func phraseOccurrences(caption string) []Occurrence {
	joined := strings.Join(strings.Fields(strings.ToLower(caption)), " ")
	var occs []Occurrence
	for _, phrase := range LimitedPhrases {
		idx := strings.Index(joined, phrase)
		if idx < 0 {
			continue
		}
		occs = append(occs, Occurrence{Phrase: phrase, Position: classifyPosition(idx)})
	}
	return occs
}

func classifyPosition(offset int) Position {
	switch {
	case offset < startThreshold:
		return PositionStart
	case offset < middleThreshold:
		return PositionMiddle
	default:
		return PositionEnd
	}
}

// introKey returns the caption's 4-word opening, lowercased.
func introKey(caption string) string {
	words := wordRe.FindAllString(strings.ToLower(caption), 4)
	return strings.Join(words, " ")
}

// Verdict is the outcome of validating one candidate caption.
type Verdict struct {
	OK         bool
	Violations []string
}

// Validate checks a candidate caption against the snapshot. Pure: the same
// candidate and snapshot always yield the same verdict, which keeps the
// retry loop testable in isolation. An empty caption is always invalid.
func Validate(candidate string, snap Snapshot) Verdict {
	if strings.TrimSpace(candidate) == "" {
		return Verdict{Violations: []string{"caption is empty"}}
	}

	var violations []string
	for _, occ := range phraseOccurrences(candidate) {
		if snap.PhrasePosition[occ.Phrase][occ.Position] >= MaxPositionPhraseUsage {
			violations = append(violations,
				fmt.Sprintf("phrase %q overused at position %s", occ.Phrase, occ.Position))
		}
		if snap.PhraseTotals[occ.Phrase] >= MaxTotalPhraseUsage {
			violations = append(violations,
				fmt.Sprintf("phrase %q overused overall", occ.Phrase))
		}
	}

	if intro := introKey(candidate); intro != "" && snap.Intros[intro] >= MaxIntroUsage {
		violations = append(violations, fmt.Sprintf("opening %q overused", intro))
	}

	return Verdict{OK: len(violations) == 0, Violations: violations}
}
