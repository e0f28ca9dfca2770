package models

import (
	"fmt"
	"strings"
	"time"
)

// Approval tracks the editorial review state of an article.
// The zero value (empty string) means the article has not been reviewed yet.
type Approval string

const (
	ApprovalPending  Approval = ""
	ApprovalApproved Approval = "Approved"
	ApprovalVetoed   Approval = "Vetoed"
)

// ParseApproval maps a sheet cell value onto an Approval state.
// Unknown or empty values default to pending so unreviewed rows stay visible.
func ParseApproval(cell string) Approval {
	switch strings.TrimSpace(cell) {
	case string(ApprovalApproved):
		return ApprovalApproved
	case string(ApprovalVetoed):
		return ApprovalVetoed
	default:
		return ApprovalPending
	}
}

// Included reports whether an article in this state belongs in the public feed.
// Only an explicit veto excludes; pending articles remain eligible.
func (a Approval) Included() bool {
	return a != ApprovalVetoed
}

// Article is the unit of work across all pipeline stages.
// Title and Link together form the logical key; two records sharing both
// are the same article regardless of which stage produced them.
type Article struct {
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Source    string   `json:"source"`
	Published string   `json:"published"`
	Caption   string   `json:"caption,omitempty"`
	Image     string   `json:"image,omitempty"`
	Approval  Approval `json:"approval,omitempty"`
	Vetoed    bool     `json:"vetoed,omitempty"`
}

// Key returns the logical identity of the article.
// Earlier pipeline revisions matched on title alone; title+link is canonical
// now, so a title change on the source site yields a new record.
func (a Article) Key() string {
	return a.Title + "\x00" + a.Link
}

// publishedLayouts covers the formats observed across the source feeds.
// Feeds disagree on date formats, so parsing tries each in order.
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
}

// ParsePublished parses a published timestamp in any of the known feed formats.
func ParsePublished(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty published timestamp")
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable published timestamp: %q", s)
}
