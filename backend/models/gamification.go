package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Badge is an award definition. Criteria holds the threshold data the
// gamification service evaluates (kind, minimum score, streak days).
type Badge struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;size:100"`
	Description string
	Icon        string `gorm:"size:50"`
	Color       string `gorm:"size:7;default:#6366f1"`
	Criteria    datatypes.JSON
	Points      int  `gorm:"default:0"`
	Rare        bool `gorm:"default:false"`
}

// UserBadge records that a user earned a badge. The unique pair makes
// grants idempotent.
type UserBadge struct {
	gorm.Model
	UserID  uint `gorm:"not null;uniqueIndex:uniq_user_badge"`
	User    User
	BadgeID uint `gorm:"not null;uniqueIndex:uniq_user_badge"`
	Badge   Badge
	Context datatypes.JSON
}
