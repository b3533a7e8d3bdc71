package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type User struct {
	gorm.Model
	Username      string `gorm:"uniqueIndex;size:150"`
	Email         string `gorm:"uniqueIndex;size:255"`
	PasswordHash  string
	Role          string `gorm:"size:10;default:student"` // student, teacher, admin
	AvatarURL     string
	CurrentStreak int `gorm:"default:0"`
	TotalPoints   int `gorm:"default:0"`
	LastPractice  *time.Time
	Settings      datatypes.JSON
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
