package controllers

import (
	"simulador/backend/config"
	"simulador/backend/models"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SubjectsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSubjectsController(db *gorm.DB, cfg *config.Config) *SubjectsController {
	return &SubjectsController{DB: db, Cfg: cfg}
}

// AvailableSubjects lists the subjects a user can practice in. Students
// see subjects that have active templates; teachers also see subjects
// with enough active questions for a random session.
func (sc *SubjectsController) AvailableSubjects(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := sc.DB.First(&user, userID).Error; err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var subjects []models.Subject
	if err := sc.DB.Where("active = ?", true).Find(&subjects).Error; err != nil {
		return utils.InternalServerError(c, "Could not query subjects")
	}

	result := make([]fiber.Map, 0, len(subjects))
	for _, subject := range subjects {
		var questionCount int64
		sc.DB.Model(&models.Question{}).
			Where("subject_id = ? AND active = ?", subject.ID, true).
			Count(&questionCount)

		templateQuery := sc.DB.Where("subject_id = ? AND active = ?", subject.ID, true)
		if user.IsTeacher() {
			templateQuery = templateQuery.Where("teacher_id = ?", userID)
		}
		var templates []models.SimulationTemplate
		templateQuery.Find(&templates)

		if user.IsStudent() && len(templates) == 0 {
			continue
		}
		if user.IsTeacher() && len(templates) == 0 && questionCount < 5 {
			continue
		}

		templateViews := make([]fiber.Map, 0, len(templates))
		for _, t := range templates {
			templateViews = append(templateViews, fiber.Map{
				"id":             t.ID,
				"title":          t.Title,
				"description":    t.Description,
				"question_count": t.QuestionCount,
			})
		}

		result = append(result, fiber.Map{
			"id":                  subject.ID,
			"name":                subject.Name,
			"display_name":        subject.DisplayName,
			"color":               subject.Color,
			"icon":                subject.Icon,
			"description":         subject.Description,
			"available_questions": questionCount,
			"templates":           templateViews,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}
