package services

import (
	"log"
	"time"

	"simulador/backend/models"

	"gorm.io/gorm"
)

// SubjectCleanupStats aggregates the abandoned sessions of one subject.
type SubjectCleanupStats struct {
	Sessions int
	Answered int
	Total    int
}

// CleanupReport describes one reclamation run. In dry-run mode the
// counts report what would have been deleted.
type CleanupReport struct {
	Cutoff          time.Time
	DryRun          bool
	Sessions        int
	Links           int
	RemainingActive int
	BySubject       map[string]SubjectCleanupStats
}

// CleanupService reclaims abandoned sessions. It runs outside the
// request path (CLI / cron) and is safe to re-run: sessions already
// removed simply no longer match.
type CleanupService struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewCleanupService(db *gorm.DB, logger *log.Logger) *CleanupService {
	return &CleanupService{db: db, logger: logger}
}

// Reclaim deletes every incomplete session started before now-olderThan,
// cascading its question links. With dryRun it only reports.
func (s *CleanupService) Reclaim(olderThan time.Duration, dryRun bool) (*CleanupReport, error) {
	cutoff := time.Now().Add(-olderThan)

	var stale []models.Session
	if err := s.db.Where("completed = ? AND started_at < ?", false, cutoff).
		Preload("Subject").Find(&stale).Error; err != nil {
		return nil, err
	}

	report := &CleanupReport{
		Cutoff:    cutoff,
		DryRun:    dryRun,
		Sessions:  len(stale),
		BySubject: make(map[string]SubjectCleanupStats),
	}

	ids := make([]uint, 0, len(stale))
	for _, sess := range stale {
		ids = append(ids, sess.ID)

		var total, answered int64
		s.db.Model(&models.SessionQuestion{}).Where("session_id = ?", sess.ID).Count(&total)
		s.db.Model(&models.SessionQuestion{}).
			Where("session_id = ? AND student_answer IS NOT NULL", sess.ID).Count(&answered)
		report.Links += int(total)

		stats := report.BySubject[sess.Subject.DisplayName]
		stats.Sessions++
		stats.Answered += int(answered)
		stats.Total += int(total)
		report.BySubject[sess.Subject.DisplayName] = stats
	}

	if !dryRun && len(ids) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("session_id IN ?", ids).
				Delete(&models.SessionQuestion{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Session{}).Error
		})
		if err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Printf("cleanup removed %d stale sessions (older than %s)", len(ids), olderThan)
		}
	}

	var remaining int64
	if err := s.db.Model(&models.Session{}).
		Where("completed = ?", false).Count(&remaining).Error; err != nil {
		return nil, err
	}
	report.RemainingActive = int(remaining)
	return report, nil
}
