package controllers

import (
	"errors"

	"simulador/backend/models"
	"simulador/backend/services"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps the service error taxonomy onto HTTP statuses. A
// conflict carries the active session as remediation data so the client
// can offer resume or force-restart.
func serviceError(c *fiber.Ctx, err error) error {
	var conflict *services.ConflictError
	var invalid *services.InvalidStateError
	var validation *services.ValidationError
	switch {
	case errors.As(err, &conflict):
		return utils.Conflict(c, "An active session already exists for this subject", fiber.Map{
			"session_id": conflict.SessionID,
			"subject_id": conflict.SubjectID,
			"progress":   conflict.Progress,
		})
	case errors.As(err, &invalid):
		return utils.BadRequest(c, invalid.Reason)
	case errors.As(err, &validation):
		return utils.BadRequest(c, validation.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFound(c, err.Error())
	}
	return utils.InternalServerError(c, "Unexpected error")
}

// questionPublicView is the student-facing question payload. It never
// contains the correct option or any feedback field; those only appear
// in questionFeedbackView after an answer is recorded.
func questionPublicView(q *models.Question, position int) fiber.Map {
	return fiber.Map{
		"id":                q.ID,
		"position":          position,
		"context":           q.Context,
		"prompt":            q.Prompt,
		"options":           q.Options,
		"difficulty":        q.Difficulty,
		"estimated_seconds": q.EstimatedSeconds,
		"competency_id":     q.CompetencyID,
		"tags":              q.Tags,
	}
}

// questionFeedbackView is the post-answer reveal: correct answer plus
// every explanation field.
func questionFeedbackView(q *models.Question) fiber.Map {
	return fiber.Map{
		"correct_option":     q.CorrectOption,
		"feedback":           q.Feedback,
		"explanation":        q.Explanation,
		"wrong_option_notes": q.WrongOptionNotes,
		"strategies":         q.Strategies,
		"common_errors":      q.CommonErrors,
	}
}

func sessionView(s *models.Session) fiber.Map {
	view := fiber.Map{
		"id":            s.ID,
		"subject_id":    s.SubjectID,
		"template_id":   s.TemplateID,
		"started_at":    s.StartedAt,
		"ended_at":      s.EndedAt,
		"completed":     s.Completed,
		"correct_count": s.CorrectCount,
		"score":         s.Score,
	}
	if s.Subject.ID != 0 {
		view["subject"] = fiber.Map{
			"id":           s.Subject.ID,
			"name":         s.Subject.Name,
			"display_name": s.Subject.DisplayName,
			"color":        s.Subject.Color,
		}
	}
	return view
}
