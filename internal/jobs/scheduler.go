package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Schedule pairs a job name with its ticker interval
type Schedule struct {
	Job      string
	Interval time.Duration
}

// Scheduler runs maintenance jobs on independent tickers until stopped
type Scheduler struct {
	maintenance *Maintenance
	schedules   []Schedule
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewScheduler creates a scheduler. Schedules with a non-positive interval
// are disabled.
func NewScheduler(maintenance *Maintenance, schedules ...Schedule) *Scheduler {
	return &Scheduler{
		maintenance: maintenance,
		schedules:   schedules,
		stopChan:    make(chan struct{}),
	}
}

// Start launches one loop per schedule and returns immediately
func (s *Scheduler) Start() {
	for _, sched := range s.schedules {
		if sched.Interval <= 0 {
			log.Warn().Str("job", sched.Job).Msg("Job disabled: non-positive interval")
			continue
		}
		s.wg.Add(1)
		go s.loop(sched)
	}
}

// Stop halts every loop and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(sched Schedule) {
	defer s.wg.Done()
	log.Info().Str("job", sched.Job).Dur("interval", sched.Interval).Msg("Starting maintenance job")

	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(sched)
		case <-s.stopChan:
			log.Info().Str("job", sched.Job).Msg("Stopping maintenance job")
			return
		}
	}
}

// runOnce bounds a single run by the interval so a stuck store call cannot
// pile up ticks. Stop cancels the run early.
func (s *Scheduler) runOnce(sched Schedule) {
	ctx, cancel := context.WithTimeout(context.Background(), sched.Interval)
	defer cancel()

	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.maintenance.Run(ctx, sched.Job); err != nil {
		log.Error().Err(err).Str("job", sched.Job).Msg("Scheduled job failed")
	}
}
