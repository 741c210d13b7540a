package mapper

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
)

const timeLayout = time.RFC3339

type LinkMapper struct{}

func NewLinkMapper() *LinkMapper {
	return &LinkMapper{}
}

func (m *LinkMapper) ToEntity(u *dto.URLResponse) *entity.ShortLink {
	if u == nil {
		return nil
	}
	return &entity.ShortLink{
		Code:        u.Code,
		OriginalURL: u.OriginalURL,
		ShortURL:    u.ShortURL,
		CreatedAt:   parseTime(u.CreatedAt),
		Clicks:      u.Clicks,
	}
}

func (m *LinkMapper) ToEntities(list []dto.URLResponse) []*entity.ShortLink {
	links := make([]*entity.ShortLink, 0, len(list))
	for i := range list {
		links = append(links, m.ToEntity(&list[i]))
	}
	return links
}

func (m *LinkMapper) ToDTO(l *entity.ShortLink) dto.LinkDTO {
	createdAt := ""
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt.UTC().Format(timeLayout)
	}
	return dto.LinkDTO{
		Code:        l.Code,
		OriginalURL: l.OriginalURL,
		ShortURL:    l.ShortURL,
		CreatedAt:   createdAt,
		Clicks:      l.Clicks,
	}
}

func (m *LinkMapper) StatsToEntity(res *dto.URLStatsResponse) *entity.LinkStats {
	if res == nil {
		return nil
	}
	stats := &entity.LinkStats{
		Link:           *m.ToEntity(&res.URL),
		TotalHits:      res.Stats.TotalHits,
		UniqueVisitors: res.Stats.UniqueVisitors,
		RecentHits:     make([]entity.RecentHit, 0, len(res.Stats.RecentHits)),
	}
	if res.Stats.LastAccessed != nil {
		if t := parseTime(*res.Stats.LastAccessed); !t.IsZero() {
			stats.LastAccessed = &t
		}
	}
	for _, hit := range res.Stats.RecentHits {
		stats.RecentHits = append(stats.RecentHits, entity.RecentHit{
			IPAddress:  hit.IPAddress,
			AccessedAt: parseTime(hit.AccessedAt),
		})
	}
	return stats
}

func (m *LinkMapper) StatsToDTO(s *entity.LinkStats) dto.LinkStatsDTO {
	out := dto.LinkStatsDTO{
		Link:           m.ToDTO(&s.Link),
		TotalHits:      s.TotalHits,
		UniqueVisitors: s.UniqueVisitors,
		RecentHits:     make([]dto.RecentHitDTO, 0, len(s.RecentHits)),
	}
	if s.LastAccessed != nil {
		out.LastAccessed = s.LastAccessed.UTC().Format(timeLayout)
	}
	for _, hit := range s.RecentHits {
		out.RecentHits = append(out.RecentHits, dto.RecentHitDTO{
			IPAddress:  MaskIP(hit.IPAddress),
			AccessedAt: hit.AccessedAt.UTC().Format(timeLayout),
		})
	}
	return out
}

func (m *LinkMapper) DashboardToEntity(res *dto.DashboardStatsResponse) *entity.DashboardStats {
	if res == nil {
		return nil
	}
	return &entity.DashboardStats{
		TotalLinks:     res.TotalLinks,
		TotalClicks:    res.TotalClicks,
		UniqueVisitors: res.UniqueVisitors,
		TopCountry:     res.TopCountry,
	}
}

func (m *LinkMapper) DashboardToDTO(s *entity.DashboardStats) dto.DashboardStatsResponse {
	return dto.DashboardStatsResponse{
		TotalLinks:     s.TotalLinks,
		TotalClicks:    s.TotalClicks,
		UniqueVisitors: s.UniqueVisitors,
		TopCountry:     s.TopCountry,
	}
}

// MaskIP hides the host part of a visitor address. IPv4 keeps the first two
// octets, IPv6 the first two groups. Unparsable values get the IPv4 rule on
// their dot-separated parts.
func MaskIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		parts := strings.Split(ip, ".")
		for i := 2; i < len(parts); i++ {
			parts[i] = "xxx"
		}
		return strings.Join(parts, ".")
	}

	addr = addr.Unmap()
	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.xxx.xxx", b[0], b[1])
	}
	b := addr.As16()
	return fmt.Sprintf("%x:%x:xxxx:xxxx:xxxx:xxxx:xxxx:xxxx",
		uint16(b[0])<<8|uint16(b[1]), uint16(b[2])<<8|uint16(b[3]))
}

// parseTime accepts RFC3339 with or without fractional seconds; anything else yields the zero time.
func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
