// FILE: internal/dto/url_dto.go
package dto

import (
	"bytes"
	"encoding/json"
)

// --- Gateway requests ---

type CreateLinkRequest struct {
	URL         string `json:"url" validate:"required,url"`
	CustomAlias string `json:"customAlias" validate:"omitempty,alphanum,min=3,max=32"`
}

// --- Remote API payloads ---

type RemoteCreateURLRequest struct {
	OriginalURL string `json:"originalUrl"`
	CustomCode  string `json:"customCode,omitempty"`
}

type URLResponse struct {
	Code        string `json:"code"`
	OriginalURL string `json:"originalUrl"`
	ShortURL    string `json:"shortUrl"`
	CreatedAt   string `json:"createdAt"`
	Clicks      int    `json:"clicks"`
}

type URLStatsResponse struct {
	URL   URLResponse   `json:"url"`
	Stats URLStatsBlock `json:"stats"`
}

type URLStatsBlock struct {
	TotalHits      int            `json:"totalHits"`
	UniqueVisitors int            `json:"uniqueVisitors"`
	LastAccessed   *string        `json:"lastAccessed"`
	RecentHits     []RecentHitDTO `json:"recentHits"`
}

type RecentHitDTO struct {
	IPAddress  string `json:"ip_address"`
	AccessedAt string `json:"accessed_at"`
}

type DashboardStatsResponse struct {
	TotalLinks     int    `json:"totalLinks"`
	TotalClicks    int    `json:"totalClicks"`
	UniqueVisitors int    `json:"uniqueVisitors"`
	TopCountry     string `json:"topCountry"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Gateway responses ---

type LinkDTO struct {
	Code        string `json:"code"`
	OriginalURL string `json:"originalUrl"`
	ShortURL    string `json:"shortUrl"`
	CreatedAt   string `json:"createdAt"`
	Clicks      int    `json:"clicks"`
}

type LinkListResponse struct {
	Links []LinkDTO `json:"links"`
	Total int       `json:"total"`
	Shown int       `json:"shown"`
}

type LinkStatsDTO struct {
	Link           LinkDTO        `json:"link"`
	TotalHits      int            `json:"totalHits"`
	UniqueVisitors int            `json:"uniqueVisitors"`
	LastAccessed   string         `json:"lastAccessed,omitempty"`
	RecentHits     []RecentHitDTO `json:"recentHits"`
}

type DashboardDTO struct {
	Stats        DashboardStatsResponse      `json:"stats"`
	Subscription *SubscriptionStatusResponse `json:"subscription,omitempty"`
}

// URLListResponse accepts either a bare array or an object wrapping it under "urls".
type URLListResponse []URLResponse

func (l *URLListResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []URLResponse
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var wrapped struct {
		URLs []URLResponse `json:"urls"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.URLs
	return nil
}
