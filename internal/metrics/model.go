package metrics

import "strconv"

const (
	FieldRequests         = "requests"
	FieldErrors           = "errors"
	FieldMediaErrors      = "media_errors"
	FieldGenerationErrors = "generation_errors"
	FieldFrames           = "frames"
	FieldCacheHits        = "cache_hits"
	FieldTotalLatencyMs   = "total_latency_ms"
	FieldLatencyCount     = "latency_count"
)

type Hourly struct {
	Date             string `json:"date"`
	Hour             int    `json:"hour"`
	Requests         int64  `json:"requests"`
	Errors           int64  `json:"errors"`
	MediaErrors      int64  `json:"media_errors"`
	GenerationErrors int64  `json:"generation_errors"`
	Frames           int64  `json:"frames"`
	CacheHits        int64  `json:"cache_hits"`
	AvgLatencyMs     int64  `json:"avg_latency_ms"`
}

func RedisKey(date string, hour int) string {
	return "gateway:metrics:" + date + ":" + strconv.Itoa(hour)
}
