// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormQuestion 题目模型
type GormQuestion struct {
	gorm.Model
	QuestionID string   `gorm:"uniqueIndex;not null"`
	Text       string   `gorm:"not null"`
	Options    []string `gorm:"type:jsonb;serializer:json;not null"`
	Correct    int      `gorm:"not null"`
}

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	SessionID string         `gorm:"index;not null"`
	Players   []PlayerResult `gorm:"type:jsonb;serializer:json;not null"`
	WinnerID  string         `gorm:"not null"`
	Turns     int            `gorm:"default:0"`
	Duration  int            `gorm:"default:0"` // 游戏时长(秒)
}
