package dto

type ExchangeResponse struct {
	ID         string `json:"id" example:"exch_9f2c1e"`
	Prompt     string `json:"prompt" example:"What happens at the end of the clip?"`
	Response   string `json:"response" example:"The car turns left and leaves the frame."`
	FrameCount int    `json:"frame_count" example:"5"`
	LatencyMs  int64  `json:"latency_ms" example:"1840"`
	CreatedAt  string `json:"created_at" example:"2026-01-15T10:30:00Z"`
}

type HistoryResponse struct {
	SessionID string             `json:"session_id" example:"4c0d5a52-3f0e-4a62-9d7a-1c5a0d6c2b11"`
	Total     int64              `json:"total" example:"12"`
	Exchanges []ExchangeResponse `json:"exchanges"`
}
