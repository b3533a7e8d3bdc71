package controllers

import (
	"simulador/backend/config"
	"simulador/backend/services"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type SessionsController struct {
	Sessions *services.SessionService
	Cfg      *config.Config
}

func NewSessionsController(sessions *services.SessionService, cfg *config.Config) *SessionsController {
	return &SessionsController{Sessions: sessions, Cfg: cfg}
}

type startSessionRequest struct {
	SubjectID     uint   `json:"subject_id"`
	TemplateID    *uint  `json:"template_id"`
	QuestionCount *int   `json:"question_count"`
	QuestionIDs   []uint `json:"question_ids"`
	ForceRestart  bool   `json:"force_restart"`
}

// StartSession godoc
// @Summary Start a practice session
// @Description Creates a session for the authenticated student and assigns its questions
// @Tags sessions
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions [post]
func (sc *SessionsController) StartSession(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req startSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if req.SubjectID == 0 {
		return utils.BadRequest(c, "subject_id is required")
	}

	session, err := sc.Sessions.StartSession(services.StartSessionInput{
		StudentID:     studentID,
		SubjectID:     req.SubjectID,
		TemplateID:    req.TemplateID,
		QuestionCount: req.QuestionCount,
		QuestionIDs:   req.QuestionIDs,
		ForceRestart:  req.ForceRestart,
	})
	if err != nil {
		return serviceError(c, err)
	}

	questions := make([]fiber.Map, 0, len(session.Questions))
	for i := range session.Questions {
		link := &session.Questions[i]
		questions = append(questions, questionPublicView(&link.Question, link.Position))
	}

	return utils.Created(c, fiber.Map{
		"session":   sessionView(session),
		"questions": questions,
	})
}

type answerRequest struct {
	QuestionID          *uint  `json:"question_id"`
	Answer              string `json:"answer"`
	ResponseTimeSeconds int    `json:"response_time_seconds"`
}

// RecordAnswer records one answer and reveals the question's feedback.
// When the last pending question is answered the session finalizes in
// the same transaction.
func (sc *SessionsController) RecordAnswer(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if req.Answer == "" {
		return utils.BadRequest(c, "answer is required")
	}

	result, err := sc.Sessions.RecordAnswer(uint(sessionID), studentID, services.AnswerInput{
		QuestionID:      req.QuestionID,
		Answer:          req.Answer,
		ResponseSeconds: req.ResponseTimeSeconds,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"correct":  result.Correct,
		"feedback": questionFeedbackView(&result.Question),
		"session":  sessionView(result.Session),
		"progress": result.Progress,
	})
}

// Finalize ends a session before all questions are answered and
// freezes its score.
func (sc *SessionsController) Finalize(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	session, err := sc.Sessions.Finalize(uint(sessionID), studentID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session": sessionView(session),
	})
}

// GetProgress returns answered/total/percent for a session.
func (sc *SessionsController) GetProgress(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	progress, err := sc.Sessions.GetProgress(uint(sessionID), studentID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, progress)
}

// LoadSession returns everything needed to resume an active session.
// Feedback fields are included only for questions already answered.
func (sc *SessionsController) LoadSession(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	session, err := sc.Sessions.LoadSession(uint(sessionID), studentID)
	if err != nil {
		return serviceError(c, err)
	}

	questions := make([]fiber.Map, 0, len(session.Questions))
	answers := make([]fiber.Map, 0)
	nextIndex := -1
	for i := range session.Questions {
		link := &session.Questions[i]
		view := questionPublicView(&link.Question, link.Position)
		if link.Answered() {
			// reveal only once answered
			view["feedback"] = questionFeedbackView(&link.Question)
			answers = append(answers, fiber.Map{
				"question_id":      link.QuestionID,
				"answer":           link.StudentAnswer,
				"correct":          link.IsCorrect,
				"response_seconds": link.ResponseSeconds,
				"position":         link.Position,
			})
		} else if nextIndex == -1 {
			nextIndex = i
		}
		questions = append(questions, view)
	}
	if nextIndex == -1 {
		nextIndex = len(questions) - 1
	}

	progress, err := sc.Sessions.GetProgress(uint(sessionID), studentID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session":    sessionView(session),
		"questions":  questions,
		"answers":    answers,
		"next_index": nextIndex,
		"progress":   progress,
	})
}

// ActiveSessions lists the student's incomplete sessions, optionally
// for a single subject, so the client can offer resume-or-restart.
func (sc *SessionsController) ActiveSessions(c *fiber.Ctx) error {
	studentID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var subjectID *uint
	if raw := c.QueryInt("subject_id"); raw > 0 {
		id := uint(raw)
		subjectID = &id
	}

	active, err := sc.Sessions.ActiveSessions(studentID, subjectID)
	if err != nil {
		return serviceError(c, err)
	}

	sessions := make([]fiber.Map, 0, len(active))
	for i := range active {
		view := sessionView(&active[i].Session)
		view["progress"] = active[i].Progress
		sessions = append(sessions, view)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"has_active": len(sessions) > 0,
		"sessions":   sessions,
	})
}
