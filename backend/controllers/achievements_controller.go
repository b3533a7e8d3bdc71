package controllers

import (
	"simulador/backend/config"
	"simulador/backend/services"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AchievementsController struct {
	Gamification *services.GamificationService
	Cfg          *config.Config
}

func NewAchievementsController(g *services.GamificationService, cfg *config.Config) *AchievementsController {
	return &AchievementsController{Gamification: g, Cfg: cfg}
}

// GetAchievements returns the user's streak, points and earned badges.
func (ac *AchievementsController) GetAchievements(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	achievements, err := ac.Gamification.Achievements(userID)
	if err != nil {
		return serviceError(c, err)
	}

	badges := make([]fiber.Map, 0, len(achievements.Badges))
	for _, ub := range achievements.Badges {
		badges = append(badges, fiber.Map{
			"name":        ub.Badge.Name,
			"description": ub.Badge.Description,
			"icon":        ub.Badge.Icon,
			"color":       ub.Badge.Color,
			"points":      ub.Badge.Points,
			"earned_at":   ub.CreatedAt,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"current_streak": achievements.CurrentStreak,
		"total_points":   achievements.TotalPoints,
		"badges":         badges,
	})
}
