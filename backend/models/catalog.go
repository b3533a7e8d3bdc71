package models

import "gorm.io/gorm"

// Subject is a top-level ICFES exam area (mathematics, reading, ...).
type Subject struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;size:100"`
	DisplayName string `gorm:"size:100"`
	Color       string `gorm:"size:7;default:#6366f1"`
	Icon        string `gorm:"size:50;default:book"`
	Description string
	Active      bool `gorm:"default:true"`
}

// Competency is a sub-skill within a subject, used for question tagging.
type Competency struct {
	gorm.Model
	SubjectID   uint `gorm:"not null;uniqueIndex:uniq_subject_competency"`
	Subject     Subject
	Name        string `gorm:"size:255;not null;uniqueIndex:uniq_subject_competency"`
	Description string
	ICFESWeight float64 `gorm:"default:1.0"` // 0..1 weight in the ICFES global score
}
