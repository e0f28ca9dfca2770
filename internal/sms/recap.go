package sms

import (
	"fmt"
	"strings"
	"time"

	"inyourbones/newsdesk/internal/models"
)

// Each article block must fit a single SMS; 153 leaves headroom for carrier
// prefixes within the 160-character budget.
const smsBodyBudget = 153

// FormatRecap renders the daily recap as one header message followed by one
// numbered message per article. Captions are truncated so each block stays
// within a single SMS.
func FormatRecap(articles []models.Article, now time.Time) []string {
	header := fmt.Sprintf("📰 InYourBones Daily Recap — %s\nReply 'NO 2' to veto #2, etc.\n", now.Format("Monday, January 02"))
	messages := []string{header}

	for i, a := range articles {
		prefix := fmt.Sprintf("%d. %s\n", i+1, a.Title)
		msg := prefix + a.Caption
		if len([]rune(msg)) > smsBodyBudget {
			maxCaption := smsBodyBudget - len([]rune(prefix)) - 3
			caption := a.Caption
			if maxCaption > 0 {
				runes := []rune(caption)
				if len(runes) > maxCaption {
					caption = strings.TrimRight(string(runes[:maxCaption]), " ") + "..."
				}
			} else {
				caption = ""
			}
			msg = prefix + caption
		}
		messages = append(messages, msg)
	}

	return messages
}
