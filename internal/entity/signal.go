package entity

import (
	"time"
)

type Market string

const (
	MarketCrypto Market = "crypto"
	MarketForex  Market = "forex"
)

type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ChannelState tracks the last message posted to one destination so the
// monitor can delete it before posting a replacement.
type ChannelState struct {
	LastMessageID      string `json:"last_message_id,omitempty"`
	TopicID            string `json:"topic_id,omitempty"`
	LastMonitoredPrice string `json:"last_monitored_price,omitempty"`
}

// SideChannel maps a destination key (group:topic) to its message bookkeeping.
type SideChannel map[string]ChannelState

// Signal 方向假设信号
type Signal struct {
	ID           int64  `gorm:"primaryKey"`
	Symbol       string `gorm:"index"`
	Market       Market `gorm:"index"`
	Bias         Bias
	Status       Status `gorm:"index"`
	EntryPrice   *string
	TakeProfit   *string
	StopLoss     *string
	Reasoning    string
	SideChannel  SideChannel `gorm:"serializer:json"`
	LastPrice    *string     // last price observed by the monitor
	CreatedAt    time.Time   `gorm:"index"`
	LastUpdateAt time.Time   `gorm:"index"`
}
