package transcript

import "time"

type Exchange struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"not null;index:idx_exchange_session_created" json:"session_id"`
	Prompt     string    `gorm:"type:text;not null" json:"prompt"`
	Response   string    `gorm:"type:text;not null" json:"response"`
	FrameCount int       `gorm:"not null;default:0" json:"frame_count"`
	LatencyMs  int64     `gorm:"not null;default:0" json:"latency_ms"`
	CreatedAt  time.Time `gorm:"index:idx_exchange_session_created" json:"created_at"`
}
