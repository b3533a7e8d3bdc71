package services

import (
	"testing"
	"time"

	"simulador/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedStaleSession(t *testing.T, db *gorm.DB, studentID, subjectID uint, age time.Duration, answered, total int) models.Session {
	t.Helper()
	session := models.Session{
		StudentID: studentID,
		SubjectID: subjectID,
		StartedAt: time.Now().Add(-age),
	}
	require.NoError(t, db.Create(&session).Error)

	questions := seedQuestions(t, db, subjectID, total)
	for i, q := range questions {
		link := models.SessionQuestion{
			SessionID:  session.ID,
			QuestionID: q.ID,
			Position:   i + 1,
		}
		if i < answered {
			answer := "A"
			correct := true
			link.StudentAnswer = &answer
			link.IsCorrect = &correct
		}
		require.NoError(t, db.Create(&link).Error)
	}
	return session
}

func TestReclaimDryRun(t *testing.T) {
	db := testDB(t)
	subject := seedSubject(t, db, "matematicas")
	ana := seedStudent(t, db, "ana")
	bob := seedStudent(t, db, "bob")
	cleo := seedStudent(t, db, "cleo")

	seedStaleSession(t, db, ana.ID, subject.ID, 48*time.Hour, 2, 5)
	seedStaleSession(t, db, bob.ID, subject.ID, 30*time.Hour, 0, 5)
	fresh := seedStaleSession(t, db, cleo.ID, subject.ID, 1*time.Hour, 1, 5)

	svc := NewCleanupService(db, nil)
	report, err := svc.Reclaim(24*time.Hour, true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 10, report.Links)
	assert.Equal(t, 3, report.RemainingActive)

	stats, ok := report.BySubject[subject.DisplayName]
	require.True(t, ok)
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 2, stats.Answered)
	assert.Equal(t, 10, stats.Total)

	// dry run deleted nothing
	var count int64
	db.Model(&models.Session{}).Count(&count)
	assert.EqualValues(t, 3, count)
	db.Model(&models.Session{}).Where("id = ?", fresh.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestReclaimDeletes(t *testing.T) {
	db := testDB(t)
	subject := seedSubject(t, db, "lectura")
	ana := seedStudent(t, db, "ana")
	bob := seedStudent(t, db, "bob")
	cleo := seedStudent(t, db, "cleo")

	stale1 := seedStaleSession(t, db, ana.ID, subject.ID, 72*time.Hour, 3, 5)
	stale2 := seedStaleSession(t, db, bob.ID, subject.ID, 25*time.Hour, 0, 5)
	fresh := seedStaleSession(t, db, cleo.ID, subject.ID, 2*time.Hour, 0, 5)

	svc := NewCleanupService(db, nil)
	report, err := svc.Reclaim(24*time.Hour, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 10, report.Links)
	assert.Equal(t, 1, report.RemainingActive)

	// hard-deleted, not soft-deleted: the rows are gone entirely
	var count int64
	db.Unscoped().Model(&models.Session{}).
		Where("id IN ?", []uint{stale1.ID, stale2.ID}).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Unscoped().Model(&models.SessionQuestion{}).
		Where("session_id IN ?", []uint{stale1.ID, stale2.ID}).Count(&count)
	assert.EqualValues(t, 0, count)

	db.Model(&models.Session{}).Where("id = ?", fresh.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestReclaimSkipsCompletedSessions(t *testing.T) {
	db := testDB(t)
	subject := seedSubject(t, db, "ciencias")
	student := seedStudent(t, db, "diego")
	old := seedCompletedSession(t, db, student.ID, subject.ID, 75)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", old.ID).
		Update("started_at", time.Now().Add(-100*time.Hour)).Error)

	svc := NewCleanupService(db, nil)
	report, err := svc.Reclaim(24*time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sessions)

	var count int64
	db.Model(&models.Session{}).Where("id = ?", old.ID).Count(&count)
	assert.EqualValues(t, 1, count, "completed history is never reclaimed")
}

func TestReclaimIsRepeatable(t *testing.T) {
	db := testDB(t)
	subject := seedSubject(t, db, "sociales")
	student := seedStudent(t, db, "elisa")
	seedStaleSession(t, db, student.ID, subject.ID, 48*time.Hour, 0, 5)

	svc := NewCleanupService(db, nil)
	first, err := svc.Reclaim(24*time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sessions)

	second, err := svc.Reclaim(24*time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sessions)
	assert.Equal(t, 0, second.Links)
}
