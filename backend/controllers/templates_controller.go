package controllers

import (
	"errors"

	"simulador/backend/config"
	"simulador/backend/models"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TemplatesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewTemplatesController(db *gorm.DB, cfg *config.Config) *TemplatesController {
	return &TemplatesController{DB: db, Cfg: cfg}
}

type createTemplateRequest struct {
	SubjectID     uint   `json:"subject_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
	QuestionIDs   []uint `json:"question_ids"`
}

// CreateTemplate lets a teacher prepare a question set. With explicit
// question IDs the template uses exactly those; otherwise sessions draw
// QuestionCount random questions from the subject.
func (tc *TemplatesController) CreateTemplate(c *fiber.Ctx) error {
	teacherID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req createTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if req.Title == "" {
		return utils.BadRequest(c, "title is required")
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = 10
	}
	if req.QuestionCount < 5 || req.QuestionCount > 100 {
		return utils.BadRequest(c, "question_count must be between 5 and 100")
	}

	var subject models.Subject
	if err := tc.DB.Where("id = ? AND active = ?", req.SubjectID, true).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Subject not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	template := models.SimulationTemplate{
		TeacherID:     teacherID,
		SubjectID:     req.SubjectID,
		Title:         req.Title,
		Description:   req.Description,
		QuestionCount: req.QuestionCount,
		Active:        true,
	}

	if len(req.QuestionIDs) > 0 {
		var questions []models.Question
		if err := tc.DB.Where("id IN ? AND subject_id = ? AND active = ?",
			req.QuestionIDs, req.SubjectID, true).Find(&questions).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
		if len(questions) != len(req.QuestionIDs) {
			return utils.BadRequest(c, "question_ids contains unknown or inactive questions")
		}
		template.Questions = questions
	}

	if err := tc.DB.Create(&template).Error; err != nil {
		return utils.InternalServerError(c, "Could not create template")
	}
	return utils.Created(c, templateView(&template))
}

// ListTemplates returns the teacher's own templates, paginated.
func (tc *TemplatesController) ListTemplates(c *fiber.Ctx) error {
	teacherID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	tc.DB.Model(&models.SimulationTemplate{}).Where("teacher_id = ?", teacherID).Count(&total)

	var templates []models.SimulationTemplate
	if err := tc.DB.Where("teacher_id = ?", teacherID).
		Preload("Subject").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&templates).Error; err != nil {
		return utils.InternalServerError(c, "Could not query templates")
	}

	views := make([]fiber.Map, 0, len(templates))
	for i := range templates {
		views = append(views, templateView(&templates[i]))
	}
	return utils.Paginate(c, views, total, page, pageSize)
}

// ToggleActive flips a template between active and inactive.
func (tc *TemplatesController) ToggleActive(c *fiber.Ctx) error {
	teacherID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	templateID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid template ID")
	}

	var template models.SimulationTemplate
	if err := tc.DB.Where("id = ? AND teacher_id = ?", templateID, teacherID).
		First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Template not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	template.Active = !template.Active
	if err := tc.DB.Model(&template).Update("active", template.Active).Error; err != nil {
		return utils.InternalServerError(c, "Could not update template")
	}
	return utils.Success(c, fiber.StatusOK, templateView(&template))
}

// Preview shows a teacher the questions a template would assign,
// answer keys included: teachers own the bank.
func (tc *TemplatesController) Preview(c *fiber.Ctx) error {
	teacherID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	templateID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid template ID")
	}

	var template models.SimulationTemplate
	if err := tc.DB.Where("id = ? AND teacher_id = ?", templateID, teacherID).
		Preload("Questions", "active = ?", true).
		First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Template not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	questions := template.Questions
	if len(questions) == 0 {
		if err := tc.DB.Where("subject_id = ? AND active = ?", template.SubjectID, true).
			Limit(template.QuestionCount).Find(&questions).Error; err != nil {
			return utils.InternalServerError(c, "Could not query questions")
		}
	}

	views := make([]fiber.Map, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		view := questionPublicView(q, i+1)
		view["feedback"] = questionFeedbackView(q)
		views = append(views, view)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"template":  templateView(&template),
		"questions": views,
	})
}

func templateView(t *models.SimulationTemplate) fiber.Map {
	view := fiber.Map{
		"id":             t.ID,
		"subject_id":     t.SubjectID,
		"title":          t.Title,
		"description":    t.Description,
		"question_count": t.QuestionCount,
		"specific":       len(t.Questions) > 0,
		"active":         t.Active,
		"created_at":     t.CreatedAt,
	}
	if t.Subject.ID != 0 {
		view["subject"] = t.Subject.DisplayName
	}
	return view
}
