package entity

import (
	"fmt"
	"time"
)

// CooldownMap holds per-market cooldown expiries (cooldown_<market> -> epoch ms).
type CooldownMap map[string]int64

func CooldownKey(market Market) string {
	return fmt.Sprintf("cooldown_%s", market)
}

// GroupBinding 信号推送目的地
type GroupBinding struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	GroupID   string `gorm:"uniqueIndex:binding_idx"`
	TopicID   string `gorm:"uniqueIndex:binding_idx"`
	Market    Market `gorm:"uniqueIndex:binding_idx;index"`
	Cooldowns CooldownMap `gorm:"serializer:json"`
	CreatedAt time.Time
}
