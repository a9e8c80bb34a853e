package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"videotube/api/internal/config"
	"videotube/api/internal/uploads"
)

type Scheduler struct {
	cron *cron.Cron
	cfg  config.UploadConfig
	log  zerolog.Logger
	now  func() time.Time
}

func NewScheduler(cfg config.UploadConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron: c,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// Start registers the temp upload sweep. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.cfg.SweepSchedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.sweepUploads); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-s.cron.Stop().Done()
		cancel()
	}()
	return func() {
		<-ctx.Done()
	}
}

func (s *Scheduler) sweepUploads() {
	removed, err := uploads.SweepStale(s.cfg.TempDir, s.cfg.SweepMaxAge, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("dir", s.cfg.TempDir).Msg("temp upload sweep failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("stale temp uploads removed")
	}
}
