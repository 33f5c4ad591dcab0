package chats

import (
	"strings"
)

const (
	minQueryLen    = 2
	maxResults     = 10
	subtitleMaxLen = 80
)

// SearchResult is a match against the cached chat snapshot.
type SearchResult struct {
	ChatID   string `json:"chatId"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	IsGroup  bool   `json:"isGroup"`
}

// Search performs a case-insensitive substring match over chat names and
// last-message bodies. Queries shorter than two characters return nothing;
// at most ten results are returned.
func (c *Cache) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < minQueryLen {
		return []SearchResult{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]SearchResult, 0, maxResults)
	for _, entry := range c.entries {
		var lastBody string
		if entry.LastMessage != nil {
			lastBody = entry.LastMessage.Body
		}

		nameMatch := strings.Contains(strings.ToLower(entry.Name), q)
		bodyMatch := lastBody != "" && strings.Contains(strings.ToLower(lastBody), q)
		if !nameMatch && !bodyMatch {
			continue
		}

		// Prefer the matching message text as subtitle; fall back to the
		// last message preview when the match was on the name.
		subtitle := ""
		if bodyMatch || lastBody != "" {
			subtitle = truncate(lastBody, subtitleMaxLen)
		}

		results = append(results, SearchResult{
			ChatID:   entry.ID,
			Title:    entry.Name,
			Subtitle: subtitle,
			IsGroup:  entry.IsGroup,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
