package models

import (
	"time"
)

// Click is one observed redirect. Clicks are append-only per short code.
type Click struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referer   string    `json:"referer,omitempty"`
}

// ClickEvent is a click waiting in the batching queue.
type ClickEvent struct {
	ShortCode string
	Click     Click
}

type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int    `json:"clicks"`
}

type HourlyClickStats struct {
	Hour   int `json:"hour"`
	Clicks int `json:"clicks"`
}

type LinkStats struct {
	Link         *Link              `json:"link"`
	TotalClicks  int                `json:"total_clicks"`
	UniqueClicks int                `json:"unique_clicks"`
	DailyClicks  []DailyClickStats  `json:"daily_clicks"`
	HourlyClicks []HourlyClickStats `json:"hourly_clicks"`
	Referrers    map[string]int     `json:"referrers"`
	RecentClicks []Click            `json:"recent_clicks"`
}
