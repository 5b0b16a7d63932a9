package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// refreshTimeout bounds one owner's daily picks refresh
const refreshTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron          *cron.Cron
	suggestCtrl   *controllers.SuggestionController
	db            *models.Database
	aiEnabled     bool
	retentionDays int
	logger        *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(
	suggestCtrl *controllers.SuggestionController,
	db *models.Database,
	aiEnabled bool,
	retentionDays int,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		suggestCtrl:   suggestCtrl,
		db:            db,
		aiEnabled:     aiEnabled,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every day at 06:00: refresh daily picks for all owners
	_, err := s.cron.AddFunc("0 6 * * *", func() {
		s.runPicksRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to add picks refresh job: %w", err)
	}

	// Every day at 04:00: prune expired picks
	_, err = s.cron.AddFunc("0 4 * * *", func() {
		s.runPicksPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add picks prune job: %w", err)
	}

	// Every hour: log library stats
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runStats()
	})
	if err != nil {
		return fmt.Errorf("failed to add stats job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Fill today's picks shortly after start
	go s.runPicksRefresh()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runPicksRefresh refreshes the daily picks for every known owner
func (s *Scheduler) runPicksRefresh() {
	if !s.aiEnabled {
		s.logger.Debug("AI disabled, skipping picks refresh")
		return
	}

	s.logger.Info("Running daily picks refresh")

	owners, err := s.db.Owners()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list owners")
		return
	}

	date := time.Now().Format("2006-01-02")
	for _, owner := range owners {
		if _, err := s.db.GetDailyPicks(owner, date); err == nil {
			s.logger.WithField("owner_id", owner).Debug("Picks already fresh")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		movies, books, err := s.suggestCtrl.Refresh(ctx, owner)
		cancel()
		if err != nil {
			s.logger.WithError(err).WithField("owner_id", owner).Error("Picks refresh failed")
			continue
		}

		picks := &models.DailyPicks{
			OwnerID: owner,
			Date:    date,
			Movies:  movies,
			Books:   books,
		}
		if err := s.db.SaveDailyPicks(picks); err != nil {
			s.logger.WithError(err).WithField("owner_id", owner).Error("Failed to save picks")
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"owner_id": owner,
			"movies":   len(movies),
			"books":    len(books),
		}).Info("Daily picks refreshed")
	}
}

// runPicksPrune deletes picks older than the retention window
func (s *Scheduler) runPicksPrune() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	if err := s.db.PruneDailyPicks(cutoff); err != nil {
		s.logger.WithError(err).Error("Picks prune failed")
		return
	}
	s.logger.WithField("cutoff", cutoff.Format("2006-01-02")).Info("Pruned expired picks")
}

// runStats logs a library overview
func (s *Scheduler) runStats() {
	medias, err := s.db.GetAllMedias()
	if err != nil {
		s.logger.WithError(err).Error("Failed to get medias for stats")
		return
	}

	counts := make(map[models.Status]int)
	for _, media := range medias {
		counts[media.Status]++
	}

	s.logger.WithFields(logrus.Fields{
		"total":       len(medias),
		"pending":     counts[models.StatusPending],
		"in_progress": counts[models.StatusInProgress],
		"completed":   counts[models.StatusCompleted],
	}).Info("Library stats")
}
