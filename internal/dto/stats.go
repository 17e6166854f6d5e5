package dto

import "time"

type KeyStatsResponse struct {
	UsageCount uint64     `json:"usage_count" example:"42"`
	LastError  *time.Time `json:"last_error"`
	IsCurrent  bool       `json:"is_current" example:"true"`
}

type MetricsResponse struct {
	Date             string `json:"date" example:"2026-01-15"`
	Hour             int    `json:"hour" example:"14"`
	Requests         int64  `json:"requests" example:"120"`
	Errors           int64  `json:"errors" example:"3"`
	MediaErrors      int64  `json:"media_errors" example:"1"`
	GenerationErrors int64  `json:"generation_errors" example:"2"`
	Frames           int64  `json:"frames" example:"480"`
	CacheHits        int64  `json:"cache_hits" example:"35"`
	AvgLatencyMs     int64  `json:"avg_latency_ms" example:"1650"`
}

type PersistStatsResponse struct {
	Pending   int    `json:"pending" example:"0"`
	Persisted uint64 `json:"persisted" example:"118"`
	Dropped   uint64 `json:"dropped" example:"0"`
	Failed    uint64 `json:"failed" example:"1"`
}

type StatsResponse struct {
	APIKeyStats    map[string]KeyStatsResponse `json:"api_key_stats"`
	CacheSize      int                         `json:"cache_size" example:"17"`
	MediaCacheSize int                         `json:"media_cache_size" example:"4"`
	Persist        PersistStatsResponse        `json:"persist"`
	Metrics        []MetricsResponse           `json:"metrics,omitempty"`
}

type StatusResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"Service is running"`
}
