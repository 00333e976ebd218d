package ingest

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/ctiworks/threatboard/internal/logger"
)

// Scheduler runs the ingest processor on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	processor *Processor
	schedule  string
}

func NewScheduler(p *Processor, schedule string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		processor: p,
		schedule:  schedule,
	}
}

// Start registers the ingest job and starts the cron loop. The returned
// error is non-nil only when the schedule expression is invalid.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logger.Get()

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.processor.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled ingest failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("Started ingest scheduler")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Get().Info().Msg("Stopped ingest scheduler")
}
