package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper requests a drain on a cron schedule so items left unprocessed by
// earlier attempts are retried without a new notification.
type Sweeper struct {
	cronRunner *cron.Cron
	dispatcher Dispatcher
	schedule   string
}

// NewSweeper schedules drains. Both 5-field and 6-field (with seconds)
// expressions are accepted, as are descriptors like "@every 5m".
func NewSweeper(schedule string, dispatcher Dispatcher) (*Sweeper, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Sweeper{
		dispatcher: dispatcher,
		schedule:   schedule,
		cronRunner: cron.New(
			cron.WithParser(parser),
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
	}

	if _, err := s.cronRunner.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) sweep() {
	if err := s.dispatcher.Trigger(context.Background(), "sweep"); err != nil {
		log.Printf("Error requesting scheduled drain: %v", err)
	}
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	s.cronRunner.Start()
	log.Printf("Sweeper started with schedule '%s'", s.schedule)
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cronRunner.Stop().Done()
	log.Println("Sweeper stopped.")
}
