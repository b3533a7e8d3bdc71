package services

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"simulador/backend/models"

	"gorm.io/gorm"
)

const (
	MinQuestionCount     = 5
	MaxQuestionCount     = 50
	DefaultQuestionCount = 10
)

// Progress describes how far a session has advanced.
type Progress struct {
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// SessionCompletedEvent is emitted once per session, after the
// finalizing transaction commits.
type SessionCompletedEvent struct {
	SessionID    uint
	StudentID    uint
	SubjectID    uint
	Score        int
	CorrectCount int
	Total        int
}

// CompletionNotifier receives completion events. The session service
// never consumes its return value; gamification is fire-and-forget.
type CompletionNotifier interface {
	SessionCompleted(evt SessionCompletedEvent)
}

type SessionService struct {
	db       *gorm.DB
	rng      *rand.Rand
	notifier CompletionNotifier
}

// NewSessionService builds the session lifecycle manager. A nil rng
// falls back to a time-seeded source; tests pass a fixed seed to make
// question selection deterministic.
func NewSessionService(db *gorm.DB, rng *rand.Rand, notifier CompletionNotifier) *SessionService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SessionService{db: db, rng: rng, notifier: notifier}
}

type StartSessionInput struct {
	StudentID     uint
	SubjectID     uint
	TemplateID    *uint
	QuestionCount *int
	QuestionIDs   []uint
	ForceRestart  bool
}

type AnswerInput struct {
	QuestionID      *uint // nil means "next pending"
	Answer          string
	ResponseSeconds int
}

// AnswerResult carries the updated session state plus the full feedback
// for the question that was just answered. Feedback is only ever
// revealed here, after the answer is recorded.
type AnswerResult struct {
	Correct  bool
	Question models.Question
	Session  *models.Session
	Progress Progress
}

// StartSession creates a session for a student+subject pair and assigns
// its questions: the explicit list when given, the template's set when
// the template defines one, otherwise a uniform random sample without
// replacement of min(requested, available) active questions.
func (s *SessionService) StartSession(in StartSessionInput) (*models.Session, error) {
	if in.QuestionCount != nil && (*in.QuestionCount < MinQuestionCount || *in.QuestionCount > MaxQuestionCount) {
		return nil, &ValidationError{Field: "question_count",
			Reason: "must be between 5 and 50"}
	}

	var subject models.Subject
	if err := s.db.Where("id = ? AND active = ?", in.SubjectID, true).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, err
	}

	var replaceID uint
	var active models.Session
	err := s.db.Where("student_id = ? AND subject_id = ? AND completed = ?",
		in.StudentID, in.SubjectID, false).First(&active).Error
	switch {
	case err == nil:
		if !in.ForceRestart {
			return nil, &ConflictError{
				SessionID: active.ID,
				SubjectID: active.SubjectID,
				Progress:  s.progressOf(active.ID),
			}
		}
		// deleted inside the create transaction below, so a start that
		// fails validation leaves the running session untouched
		replaceID = active.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no active session, nothing to do
	default:
		return nil, err
	}

	var template *models.SimulationTemplate
	if in.TemplateID != nil {
		var t models.SimulationTemplate
		if err := s.db.Preload("Questions", "active = ?", true).
			Where("id = ? AND active = ?", *in.TemplateID, true).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("template")
			}
			return nil, err
		}
		if t.SubjectID != in.SubjectID {
			return nil, &ValidationError{Field: "template_id",
				Reason: "template belongs to a different subject"}
		}
		template = &t
	}

	picked, err := s.selectQuestions(in, template)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		StudentID:  in.StudentID,
		SubjectID:  in.SubjectID,
		TemplateID: in.TemplateID,
		StartedAt:  time.Now(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if replaceID != 0 {
			if err := s.deleteSession(tx, replaceID); err != nil {
				return err
			}
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		for i := range picked {
			link := models.SessionQuestion{
				SessionID:  session.ID,
				QuestionID: picked[i].ID,
				Position:   i + 1,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The partial unique index catches the race between two
		// concurrent starts; report the winner instead of a 500.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var winner models.Session
			if e := s.db.Where("student_id = ? AND subject_id = ? AND completed = ?",
				in.StudentID, in.SubjectID, false).First(&winner).Error; e == nil {
				return nil, &ConflictError{
					SessionID: winner.ID,
					SubjectID: winner.SubjectID,
					Progress:  s.progressOf(winner.ID),
				}
			}
			return nil, &ConflictError{SubjectID: in.SubjectID}
		}
		return nil, err
	}

	return s.GetSession(session.ID, in.StudentID)
}

func (s *SessionService) selectQuestions(in StartSessionInput, template *models.SimulationTemplate) ([]models.Question, error) {
	if len(in.QuestionIDs) > 0 {
		seen := make(map[uint]bool, len(in.QuestionIDs))
		for _, id := range in.QuestionIDs {
			if seen[id] {
				return nil, &ValidationError{Field: "question_ids",
					Reason: "contains duplicate ids"}
			}
			seen[id] = true
		}
		var qs []models.Question
		if err := s.db.Where("id IN ? AND subject_id = ? AND active = ?",
			in.QuestionIDs, in.SubjectID, true).Find(&qs).Error; err != nil {
			return nil, err
		}
		byID := make(map[uint]models.Question, len(qs))
		for _, q := range qs {
			byID[q.ID] = q
		}
		ordered := make([]models.Question, 0, len(in.QuestionIDs))
		for _, id := range in.QuestionIDs {
			q, ok := byID[id]
			if !ok {
				return nil, notFound("question")
			}
			ordered = append(ordered, q)
		}
		return ordered, nil
	}

	if template != nil && len(template.Questions) > 0 {
		return template.Questions, nil
	}

	count := DefaultQuestionCount
	if in.QuestionCount != nil {
		count = *in.QuestionCount
	} else if template != nil {
		count = template.QuestionCount
	}

	var pool []models.Question
	if err := s.db.Where("subject_id = ? AND active = ?", in.SubjectID, true).Find(&pool).Error; err != nil {
		return nil, err
	}
	return s.sample(pool, count), nil
}

// sample draws n questions uniformly without replacement. When n covers
// the whole pool the result is still a random permutation, so question
// order varies between sessions.
func (s *SessionService) sample(pool []models.Question, n int) []models.Question {
	if n > len(pool) {
		n = len(pool)
	}
	perm := s.rng.Perm(len(pool))
	picked := make([]models.Question, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

// GetSession loads a student's session with its subject, template and
// ordered question links.
func (s *SessionService) GetSession(sessionID, studentID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.Where("id = ? AND student_id = ?", sessionID, studentID).
		Preload("Subject").
		Preload("Template").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions.Question").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("session")
		}
		return nil, err
	}
	return &session, nil
}

// RecordAnswer stores the student's answer on the targeted link (or the
// next pending one), derives correctness, and finalizes the session in
// the same transaction when this was the last unanswered question.
func (s *SessionService) RecordAnswer(sessionID, studentID uint, in AnswerInput) (*AnswerResult, error) {
	var session models.Session
	if err := s.db.Where("id = ? AND student_id = ?", sessionID, studentID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("session")
		}
		return nil, err
	}
	if session.Completed {
		return nil, &InvalidStateError{Reason: "session is already completed"}
	}
	if in.ResponseSeconds < 0 {
		return nil, &ValidationError{Field: "response_time_seconds", Reason: "must not be negative"}
	}
	answer := strings.ToUpper(strings.TrimSpace(in.Answer))
	if len(answer) != 1 {
		return nil, &ValidationError{Field: "answer", Reason: "must be a single option label"}
	}

	query := s.db.Where("session_id = ? AND student_answer IS NULL", session.ID).
		Preload("Question")
	if in.QuestionID != nil {
		query = query.Where("question_id = ?", *in.QuestionID)
	}
	var link models.SessionQuestion
	if err := query.Order("position ASC").First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("unanswered question")
		}
		return nil, err
	}
	if !link.Question.Options.Has(answer) {
		return nil, &ValidationError{Field: "answer", Reason: "not among this question's option labels"}
	}

	correct := answer == strings.ToUpper(link.Question.CorrectOption)
	completed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Conditional write: a concurrent submission for the same slot
		// loses here instead of overwriting the first answer.
		res := tx.Model(&models.SessionQuestion{}).
			Where("id = ? AND student_answer IS NULL", link.ID).
			Updates(map[string]interface{}{
				"student_answer":   answer,
				"is_correct":       correct,
				"response_seconds": in.ResponseSeconds,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("unanswered question")
		}
		if correct {
			if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
				UpdateColumn("correct_count", gorm.Expr("correct_count + 1")).Error; err != nil {
				return err
			}
		}
		var pending int64
		if err := tx.Model(&models.SessionQuestion{}).
			Where("session_id = ? AND student_answer IS NULL", session.ID).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending == 0 {
			if err := s.finalizeTx(tx, session.ID); err != nil {
				return err
			}
			completed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&session, session.ID).Error; err != nil {
		return nil, err
	}
	if completed {
		s.notifyCompleted(&session)
	}

	return &AnswerResult{
		Correct:  correct,
		Question: link.Question,
		Session:  &session,
		Progress: s.progressOf(session.ID),
	}, nil
}

// Finalize completes a session explicitly, before all questions are
// answered. Unanswered questions count neither as correct nor as
// incorrect; they simply lower the score's numerator against the full
// total.
func (s *SessionService) Finalize(sessionID, studentID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("id = ? AND student_id = ?", sessionID, studentID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("session")
		}
		return nil, err
	}
	if session.Completed {
		return nil, &InvalidStateError{Reason: "session is already completed"}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.finalizeTx(tx, session.ID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.First(&session, session.ID).Error; err != nil {
		return nil, err
	}
	s.notifyCompleted(&session)
	return &session, nil
}

// finalizeTx freezes the session inside the caller's transaction: sets
// the end timestamp, elapsed time, and the final percentage score.
func (s *SessionService) finalizeTx(tx *gorm.DB, sessionID uint) error {
	var session models.Session
	if err := tx.First(&session, sessionID).Error; err != nil {
		return err
	}
	var total, correct int64
	if err := tx.Model(&models.SessionQuestion{}).
		Where("session_id = ?", sessionID).Count(&total).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.SessionQuestion{}).
		Where("session_id = ? AND is_correct = ?", sessionID, true).Count(&correct).Error; err != nil {
		return err
	}
	now := time.Now()
	return tx.Model(&session).Updates(map[string]interface{}{
		"completed":     true,
		"ended_at":      now,
		"total_seconds": int(now.Sub(session.StartedAt).Seconds()),
		"correct_count": correct,
		"score":         percentScore(int(correct), int(total)),
	}).Error
}

func (s *SessionService) notifyCompleted(session *models.Session) {
	if s.notifier == nil {
		return
	}
	var total int64
	s.db.Model(&models.SessionQuestion{}).Where("session_id = ?", session.ID).Count(&total)
	s.notifier.SessionCompleted(SessionCompletedEvent{
		SessionID:    session.ID,
		StudentID:    session.StudentID,
		SubjectID:    session.SubjectID,
		Score:        session.Score,
		CorrectCount: session.CorrectCount,
		Total:        int(total),
	})
}

// GetProgress is a pure read of a session's progress.
func (s *SessionService) GetProgress(sessionID, studentID uint) (Progress, error) {
	var session models.Session
	if err := s.db.Where("id = ? AND student_id = ?", sessionID, studentID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Progress{}, notFound("session")
		}
		return Progress{}, err
	}
	return s.progressOf(session.ID), nil
}

func (s *SessionService) progressOf(sessionID uint) Progress {
	var total, answered int64
	s.db.Model(&models.SessionQuestion{}).Where("session_id = ?", sessionID).Count(&total)
	s.db.Model(&models.SessionQuestion{}).
		Where("session_id = ? AND student_answer IS NOT NULL", sessionID).Count(&answered)
	return Progress{
		Answered: int(answered),
		Total:    int(total),
		Percent:  progressPercent(int(answered), int(total)),
	}
}

// ActiveSession describes one incomplete session for the resume prompt.
type ActiveSession struct {
	Session  models.Session
	Progress Progress
}

// ActiveSessions lists the student's incomplete sessions, optionally
// narrowed to one subject.
func (s *SessionService) ActiveSessions(studentID uint, subjectID *uint) ([]ActiveSession, error) {
	query := s.db.Where("student_id = ? AND completed = ?", studentID, false).Preload("Subject")
	if subjectID != nil {
		query = query.Where("subject_id = ?", *subjectID)
	}
	var sessions []models.Session
	if err := query.Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	out := make([]ActiveSession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, ActiveSession{Session: sess, Progress: s.progressOf(sess.ID)})
	}
	return out, nil
}

// LoadSession returns an incomplete session with everything the client
// needs to resume it. Completed sessions cannot be reopened.
func (s *SessionService) LoadSession(sessionID, studentID uint) (*models.Session, error) {
	session, err := s.GetSession(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, &InvalidStateError{Reason: "session is already completed"}
	}
	return session, nil
}

// deleteSession removes a session and its links for good, inside the
// caller's transaction. Hard delete: a soft-deleted row would keep
// occupying the active-session slot.
func (s *SessionService) deleteSession(tx *gorm.DB, sessionID uint) error {
	if err := tx.Unscoped().Where("session_id = ?", sessionID).
		Delete(&models.SessionQuestion{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(&models.Session{}, sessionID).Error
}

// percentScore is the canonical final-score rule: integer percentage,
// round half up. A zero-question session scores 0.
func percentScore(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// progressPercent keeps one decimal, matching the progress payloads.
func progressPercent(answered, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(answered)/float64(total)*1000) / 10
}
