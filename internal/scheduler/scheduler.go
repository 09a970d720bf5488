package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/weather"
)

const (
	defaultInterval = 5 * time.Minute
	jobTimeout      = 30 * time.Second
	maxAlerts       = 50
)

// Refresher re-fetches a watched city and reports what changed.
type Refresher interface {
	RefreshCity(ctx context.Context, name string, units weather.Units) (weather.Update, error)
}

// Alert is one detected change for a watched city.
type Alert struct {
	City   string             `json:"city"`
	At     time.Time          `json:"at"`
	Source string             `json:"source"`
	Kind   weather.ChangeKind `json:"kind"`
	Text   string             `json:"message"`
}

// Scheduler periodically refreshes watched cities and keeps the most recent
// alerts raised by change detection.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	cities    []string
	units     weather.Units
	interval  time.Duration
	logger    *zap.Logger

	maintenance []maintenanceJob

	mu     sync.Mutex
	alerts []Alert
}

type maintenanceJob struct {
	name  string
	every time.Duration
	run   func()
}

func New(cities []string, units weather.Units, interval time.Duration, refresher Refresher, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		cities:    cities,
		units:     units,
		interval:  interval,
		logger:    logger.Named("scheduler"),
	}
}

// AddMaintenance registers a housekeeping job run every interval alongside
// the city refresh. It must be called before Start.
func (s *Scheduler) AddMaintenance(name string, every time.Duration, run func()) {
	if every <= 0 {
		every = defaultInterval
	}
	s.maintenance = append(s.maintenance, maintenanceJob{name: name, every: every, run: run})
}

// Start schedules the refresh and maintenance jobs and starts the underlying
// scheduler. The first runs happen immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 && len(s.maintenance) == 0 {
		s.logger.Info("no cities to watch; nothing to schedule")
		return nil
	}

	if len(s.cities) > 0 {
		if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
			return err
		}
		s.logger.Info("watching cities",
			zap.Strings("cities", s.cities),
			zap.Duration("interval", s.interval))
	}

	for _, job := range s.maintenance {
		if _, err := s.scheduler.Every(job.every).Do(func() {
			s.logger.Debug("running maintenance job", zap.String("job", job.name))
			job.run()
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunOnce refreshes every watched city concurrently and records alerts.
func (s *Scheduler) RunOnce() {
	s.logger.Debug("running refresh job")

	var wg sync.WaitGroup
	for _, city := range s.cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			update, err := s.refresher.RefreshCity(ctx, city, s.units)
			if err != nil {
				s.logger.Warn("refresh failed", zap.String("city", city), zap.Error(err))
				return
			}
			s.record(city, update)
		}(city)
	}
	wg.Wait()

	s.logger.Debug("completed refresh job")
}

func (s *Scheduler) record(city string, u weather.Update) {
	if len(u.Changes) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range u.Changes {
		s.logger.Info("weather changed",
			zap.String("city", city),
			zap.String("kind", string(ch.Kind)),
			zap.String("message", ch.Message))
		s.alerts = append(s.alerts, Alert{
			City:   city,
			At:     u.Current.Current.Timestamp,
			Source: u.Source,
			Kind:   ch.Kind,
			Text:   ch.Message,
		})
	}
	if n := len(s.alerts); n > maxAlerts {
		s.alerts = append([]Alert(nil), s.alerts[n-maxAlerts:]...)
	}
}

// Alerts returns the recorded alerts, newest last.
func (s *Scheduler) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}
