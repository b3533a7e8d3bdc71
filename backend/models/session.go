package models

import (
	"time"

	"gorm.io/gorm"
)

// SimulationTemplate is a question set prepared by a teacher. When a
// template lists specific questions, sessions started from it use
// exactly those; otherwise QuestionCount random questions are drawn
// from the subject.
type SimulationTemplate struct {
	gorm.Model
	TeacherID     uint `gorm:"not null;index"`
	Teacher       User
	SubjectID     uint `gorm:"not null;index"`
	Subject       Subject
	Title         string `gorm:"size:200;not null"`
	Description   string
	QuestionCount int        `gorm:"default:10"`
	Questions     []Question `gorm:"many2many:template_questions"`
	Active        bool       `gorm:"default:true"`
}

// Session is one practice attempt by a student in a subject.
//
// The partial unique index enforces the "at most one active session per
// (student, subject)" rule at the storage layer, so two concurrent
// starts cannot both succeed; the loser surfaces as a duplicate-key
// error that the service translates into a Conflict.
type Session struct {
	gorm.Model
	StudentID    uint `gorm:"not null;uniqueIndex:uniq_active_session,where:completed = false AND deleted_at IS NULL"`
	Student      User
	SubjectID    uint `gorm:"not null;uniqueIndex:uniq_active_session,where:completed = false AND deleted_at IS NULL"`
	Subject      Subject
	TemplateID   *uint
	Template     *SimulationTemplate
	StartedAt    time.Time `gorm:"not null"`
	EndedAt      *time.Time
	Completed    bool `gorm:"not null;default:false"`
	CorrectCount int  `gorm:"not null;default:0"` // correct answers so far
	Score        int  `gorm:"not null;default:0"` // final percentage, frozen by finalize
	TotalSeconds int  `gorm:"not null;default:0"`
	Questions    []SessionQuestion `gorm:"constraint:OnDelete:CASCADE"`
}

// SessionQuestion links one question into a session and records the
// student's answer for it. StudentAnswer stays NULL until answered;
// correctness is derived once and never rewritten.
type SessionQuestion struct {
	gorm.Model
	SessionID       uint `gorm:"not null;uniqueIndex:uniq_session_question"`
	QuestionID      uint `gorm:"not null;uniqueIndex:uniq_session_question"`
	Question        Question
	Position        int     `gorm:"not null;default:0"`
	StudentAnswer   *string `gorm:"size:1"`
	IsCorrect       *bool
	ResponseSeconds *int
}

// Answered reports whether the student already answered this link.
func (sq *SessionQuestion) Answered() bool { return sq.StudentAnswer != nil }
