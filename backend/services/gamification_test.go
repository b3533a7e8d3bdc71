package services

import (
	"testing"
	"time"

	"simulador/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCompletedSession(t *testing.T, db *gorm.DB, studentID, subjectID uint, score int) models.Session {
	t.Helper()
	now := time.Now()
	session := models.Session{
		StudentID: studentID,
		SubjectID: subjectID,
		StartedAt: now.Add(-10 * time.Minute),
		EndedAt:   &now,
		Completed: true,
		Score:     score,
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

func TestUpdateStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)
	earlierToday := now.Add(-2 * time.Hour)

	cases := []struct {
		name   string
		last   *time.Time
		streak int
		want   int
	}{
		{"first ever practice", nil, 0, 1},
		{"same day keeps streak", &earlierToday, 3, 3},
		{"next day extends", &yesterday, 3, 4},
		{"gap resets", &lastWeek, 5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := models.User{CurrentStreak: tc.streak, LastPractice: tc.last}
			updateStreak(&user, now)
			assert.Equal(t, tc.want, user.CurrentStreak)
			require.NotNil(t, user.LastPractice)
			assert.Equal(t, now, *user.LastPractice)
		})
	}
}

func TestSessionCompletedAwardsPointsAndBadges(t *testing.T) {
	db := testDB(t)
	student := seedStudent(t, db, "ximena")
	subject := seedSubject(t, db, "matematicas")
	session := seedCompletedSession(t, db, student.ID, subject.ID, 85)

	g := NewGamificationService(db, nil)
	evt := SessionCompletedEvent{
		SessionID:    session.ID,
		StudentID:    student.ID,
		SubjectID:    subject.ID,
		Score:        85,
		CorrectCount: 4,
		Total:        5,
	}
	require.NoError(t, g.apply(evt, time.Now()))

	var user models.User
	require.NoError(t, db.First(&user, student.ID).Error)
	assert.Equal(t, 40, user.TotalPoints)
	assert.Equal(t, 1, user.CurrentStreak)
	require.NotNil(t, user.LastPractice)

	achievements, err := g.Achievements(student.ID)
	require.NoError(t, err)
	names := badgeNames(achievements)
	assert.Contains(t, names, "Primera Sesión")
	assert.Contains(t, names, "Alto Rendimiento")
	assert.NotContains(t, names, "Racha Semanal")
}

func TestBadgeGrantsAreIdempotent(t *testing.T) {
	db := testDB(t)
	student := seedStudent(t, db, "yolanda")
	subject := seedSubject(t, db, "lectura")
	session := seedCompletedSession(t, db, student.ID, subject.ID, 90)

	g := NewGamificationService(db, nil)
	evt := SessionCompletedEvent{
		SessionID: session.ID,
		StudentID: student.ID,
		SubjectID: subject.ID,
		Score:     90,
	}
	require.NoError(t, g.apply(evt, time.Now()))
	require.NoError(t, g.apply(evt, time.Now()))

	var links int64
	db.Model(&models.UserBadge{}).Where("user_id = ?", student.ID).Count(&links)
	assert.EqualValues(t, 2, links)
}

func TestFirstSessionBadgeOnlyOnFirst(t *testing.T) {
	db := testDB(t)
	student := seedStudent(t, db, "zoe")
	subject := seedSubject(t, db, "ciencias")
	seedCompletedSession(t, db, student.ID, subject.ID, 40)
	second := seedCompletedSession(t, db, student.ID, subject.ID, 50)

	g := NewGamificationService(db, nil)
	require.NoError(t, g.apply(SessionCompletedEvent{
		SessionID: second.ID,
		StudentID: student.ID,
		SubjectID: subject.ID,
		Score:     50,
	}, time.Now()))

	achievements, err := g.Achievements(student.ID)
	require.NoError(t, err)
	assert.NotContains(t, badgeNames(achievements), "Primera Sesión")
}

func TestWeeklyStreakBadge(t *testing.T) {
	db := testDB(t)
	student := seedStudent(t, db, "andres")
	subject := seedSubject(t, db, "sociales")

	yesterday := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", student.ID).
		Updates(map[string]interface{}{
			"current_streak": 6,
			"last_practice":  yesterday,
		}).Error)
	seedCompletedSession(t, db, student.ID, subject.ID, 30)
	session := seedCompletedSession(t, db, student.ID, subject.ID, 30)

	g := NewGamificationService(db, nil)
	require.NoError(t, g.apply(SessionCompletedEvent{
		SessionID: session.ID,
		StudentID: student.ID,
		SubjectID: subject.ID,
		Score:     30,
	}, time.Now()))

	var user models.User
	require.NoError(t, db.First(&user, student.ID).Error)
	assert.Equal(t, 7, user.CurrentStreak)

	achievements, err := g.Achievements(student.ID)
	require.NoError(t, err)
	assert.Contains(t, badgeNames(achievements), "Racha Semanal")
}

func TestAchievementsUnknownUser(t *testing.T) {
	db := testDB(t)
	g := NewGamificationService(db, nil)
	_, err := g.Achievements(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func badgeNames(a *Achievements) []string {
	names := make([]string, 0, len(a.Badges))
	for _, ub := range a.Badges {
		names = append(names, ub.Badge.Name)
	}
	return names
}
