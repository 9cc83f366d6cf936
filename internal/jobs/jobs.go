// Package jobs runs the periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/anonto42/bizgram/backend/internal/ranking"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultRescoreSpec = "*/15 * * * *"
	MuteCleanupSpec    = "@hourly"
	jobTimeout         = 5 * time.Minute
)

// MuteStore deletes mutes whose Until passed.
type MuteStore interface {
	DeleteExpiredMutes(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	opinions ranking.Store
	mutes    MuteStore
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(opinions ranking.Store, mutes MuteStore, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		opinions: opinions,
		mutes:    mutes,
		log:      log,
		now:      time.Now,
	}
}

// Register adds the jobs. An empty rescoreSpec uses DefaultRescoreSpec.
func (s *Scheduler) Register(rescoreSpec string) error {
	if rescoreSpec == "" {
		rescoreSpec = DefaultRescoreSpec
	}
	if _, err := s.cron.AddFunc(rescoreSpec, s.runRescore); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(MuteCleanupSpec, s.runMuteCleanup)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runRescore() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.Rescore(ctx); err != nil {
		s.log.Error("rescore failed", zap.Error(err))
	}
}

// Rescore refreshes opinion scores once.
func (s *Scheduler) Rescore(ctx context.Context) (int, error) {
	n, err := ranking.Rescore(ctx, s.opinions, s.now())
	metrics.RescoreRuns.WithLabelValues(successLabel(err)).Inc()
	if err == nil {
		s.log.Info("opinions rescored", zap.Int("count", n))
	}
	return n, err
}

func (s *Scheduler) runMuteCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.mutes.DeleteExpiredMutes(ctx, s.now())
	if err != nil {
		s.log.Error("mute cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("expired mutes removed", zap.Int64("count", n))
	}
}

func successLabel(err error) string {
	if err != nil {
		return "false"
	}
	return "true"
}
