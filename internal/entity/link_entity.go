package entity

import (
	"strings"
	"time"
)

type ShortLink struct {
	Code        string
	OriginalURL string
	ShortURL    string
	CreatedAt   time.Time
	Clicks      int
}

// Matches reports whether the link's original or short URL contains query, ignoring case.
func (l *ShortLink) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.OriginalURL), query) ||
		strings.Contains(strings.ToLower(l.ShortURL), query)
}

type RecentHit struct {
	IPAddress  string
	AccessedAt time.Time
}

type LinkStats struct {
	Link           ShortLink
	TotalHits      int
	UniqueVisitors int
	LastAccessed   *time.Time
	RecentHits     []RecentHit
}

type DashboardStats struct {
	TotalLinks     int
	TotalClicks    int
	UniqueVisitors int
	TopCountry     string
}
