package routes

import (
	"log"

	"simulador/backend/config"
	"simulador/backend/controllers"
	"simulador/backend/middleware"
	"simulador/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	gamification := services.NewGamificationService(db, logger)
	sessionService := services.NewSessionService(db, nil, gamification)

	authMiddleware := middleware.AuthMiddleware(cfg)
	teacherMiddleware := middleware.TeacherMiddleware(cfg)

	// Session lifecycle
	sessionsController := controllers.NewSessionsController(sessionService, cfg)
	sessions := app.Group("/api/sessions", authMiddleware)
	sessions.Post("/", sessionsController.StartSession)
	sessions.Get("/active", sessionsController.ActiveSessions)
	sessions.Get("/:id", sessionsController.LoadSession)
	sessions.Post("/:id/answers", sessionsController.RecordAnswer)
	sessions.Post("/:id/finalize", sessionsController.Finalize)
	sessions.Get("/:id/progress", sessionsController.GetProgress)

	// Catalog
	subjectsController := controllers.NewSubjectsController(db, cfg)
	app.Get("/api/subjects/available", authMiddleware, subjectsController.AvailableSubjects)

	// Teacher templates
	templatesController := controllers.NewTemplatesController(db, cfg)
	templates := app.Group("/api/templates", authMiddleware, teacherMiddleware)
	templates.Post("/", templatesController.CreateTemplate)
	templates.Get("/", templatesController.ListTemplates)
	templates.Post("/:id/toggle", templatesController.ToggleActive)
	templates.Get("/:id/preview", templatesController.Preview)

	// Gamification
	achievementsController := controllers.NewAchievementsController(gamification, cfg)
	app.Get("/api/me/achievements", authMiddleware, achievementsController.GetAchievements)
}
