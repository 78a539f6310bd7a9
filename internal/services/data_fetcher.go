package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher reloads upstream data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// DataFetcherService refreshes the player pool on a fixed schedule.
type DataFetcherService struct {
	pool          Refresher
	logger        *logrus.Logger
	cron          *cron.Cron
	mu            sync.Mutex
	isRunning     bool
	fetchInterval time.Duration
	fetchTimeout  time.Duration
}

// NewDataFetcherService creates a new data fetcher service
func NewDataFetcherService(pool Refresher, logger *logrus.Logger, fetchInterval time.Duration) *DataFetcherService {
	return &DataFetcherService{
		pool:          pool,
		logger:        logger,
		cron:          cron.New(),
		fetchInterval: fetchInterval,
		fetchTimeout:  2 * time.Minute,
	}
}

// Start schedules the refresh and runs one immediately.
func (s *DataFetcherService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("data fetcher is already running")
	}
	if s.fetchInterval <= 0 {
		return fmt.Errorf("invalid fetch interval %s", s.fetchInterval)
	}

	schedule := fmt.Sprintf("@every %s", s.fetchInterval.String())
	if _, err := s.cron.AddFunc(schedule, s.fetchPool); err != nil {
		return fmt.Errorf("failed to schedule data fetcher: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	go s.fetchPool()

	s.logger.WithField("interval", s.fetchInterval.String()).Info("Data fetcher service started")
	return nil
}

// Stop halts the schedule and waits for a running fetch to finish.
func (s *DataFetcherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Data fetcher service stopped")
}

// IsRunning reports whether the schedule is active.
func (s *DataFetcherService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *DataFetcherService) fetchPool() {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	s.logger.Info("Starting scheduled player pool refresh")
	if err := s.pool.Refresh(ctx); err != nil {
		s.logger.Errorf("Scheduled player pool refresh failed: %v", err)
		return
	}
	s.logger.Info("Completed scheduled player pool refresh")
}
