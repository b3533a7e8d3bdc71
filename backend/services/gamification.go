package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"simulador/backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const pointsPerCorrectAnswer = 10

// GamificationService consumes SessionCompleted events: it maintains
// the student's practice streak and point total and hands out badges.
// It implements CompletionNotifier so the session service can call it
// directly without knowing anything about badges.
type GamificationService struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewGamificationService(db *gorm.DB, logger *log.Logger) *GamificationService {
	return &GamificationService{db: db, logger: logger}
}

// SessionCompleted applies all gamification effects of one finished
// session. Errors are logged, never propagated: a failed badge grant
// must not undo a finalized session.
func (g *GamificationService) SessionCompleted(evt SessionCompletedEvent) {
	if err := g.apply(evt, time.Now()); err != nil && g.logger != nil {
		g.logger.Printf("gamification update failed for session %d: %v", evt.SessionID, err)
	}
}

func (g *GamificationService) apply(evt SessionCompletedEvent, now time.Time) error {
	err := g.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, evt.StudentID).Error; err != nil {
			return err
		}
		updateStreak(&user, now)
		user.TotalPoints += evt.CorrectCount * pointsPerCorrectAnswer
		return tx.Save(&user).Error
	})
	if err != nil {
		return err
	}
	return g.awardBadges(evt)
}

// updateStreak applies the daily practice streak rule: practicing again
// the same day changes nothing, the next day extends the streak, and a
// gap resets it to 1.
func updateStreak(user *models.User, now time.Time) {
	today := now.Truncate(24 * time.Hour)
	if user.LastPractice != nil {
		last := user.LastPractice.Truncate(24 * time.Hour)
		switch days := int(today.Sub(last).Hours() / 24); {
		case days == 0:
			// already practiced today
		case days == 1:
			user.CurrentStreak++
		default:
			user.CurrentStreak = 1
		}
	} else {
		user.CurrentStreak = 1
	}
	user.LastPractice = &now
}

func (g *GamificationService) awardBadges(evt SessionCompletedEvent) error {
	var completed int64
	if err := g.db.Model(&models.Session{}).
		Where("student_id = ? AND completed = ?", evt.StudentID, true).
		Count(&completed).Error; err != nil {
		return err
	}
	if completed == 1 {
		if err := g.grant(evt.StudentID, models.Badge{
			Name:        "Primera Sesión",
			Description: "Completaste tu primera sesión de práctica",
			Icon:        "star",
			Color:       "#10b981",
			Criteria:    criteria(map[string]interface{}{"kind": "first_session"}),
			Points:      50,
		}, map[string]interface{}{"earned_by": "first_session"}); err != nil {
			return err
		}
	}

	if evt.Score >= 80 {
		if err := g.grant(evt.StudentID, models.Badge{
			Name:        "Alto Rendimiento",
			Description: "Obtuviste un puntaje de 80% o más",
			Icon:        "trophy",
			Color:       "#f59e0b",
			Criteria:    criteria(map[string]interface{}{"kind": "high_score", "min": 80}),
			Points:      100,
		}, map[string]interface{}{"earned_by": "high_score", "score": evt.Score}); err != nil {
			return err
		}
	}

	var user models.User
	if err := g.db.First(&user, evt.StudentID).Error; err != nil {
		return err
	}
	if user.CurrentStreak >= 7 {
		if err := g.grant(evt.StudentID, models.Badge{
			Name:        "Racha Semanal",
			Description: "Practicaste 7 días seguidos",
			Icon:        "fire",
			Color:       "#ef4444",
			Criteria:    criteria(map[string]interface{}{"kind": "streak", "days": 7}),
			Points:      200,
		}, map[string]interface{}{"earned_by": "streak", "streak": user.CurrentStreak}); err != nil {
			return err
		}
	}
	return nil
}

// grant creates the badge definition on first use and links it to the
// user. The unique (user, badge) index makes repeated grants no-ops.
func (g *GamificationService) grant(userID uint, badge models.Badge, context map[string]interface{}) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Badge{Name: badge.Name}).
			FirstOrCreate(&badge).Error; err != nil {
			return err
		}
		link := models.UserBadge{
			UserID:  userID,
			BadgeID: badge.ID,
			Context: criteria(context),
		}
		err := tx.Create(&link).Error
		if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	})
}

// Achievements returns the user's earned badges plus their counters.
type Achievements struct {
	Badges        []models.UserBadge
	CurrentStreak int
	TotalPoints   int
}

func (g *GamificationService) Achievements(userID uint) (*Achievements, error) {
	var user models.User
	if err := g.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	var badges []models.UserBadge
	if err := g.db.Where("user_id = ?", userID).Preload("Badge").
		Order("created_at DESC").Find(&badges).Error; err != nil {
		return nil, err
	}
	return &Achievements{
		Badges:        badges,
		CurrentStreak: user.CurrentStreak,
		TotalPoints:   user.TotalPoints,
	}, nil
}

func criteria(m map[string]interface{}) datatypes.JSON {
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}
