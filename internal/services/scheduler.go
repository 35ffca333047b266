package services

import (
	"context"
	"fmt"
	"time"

	"auction-system/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ExpiryScheduler drives the deadline sweep and the persistence retries.
type ExpiryScheduler struct {
	cron          *cron.Cron
	auctionMgr    *AuctionManager
	bidService    *BidService
	tickInterval  time.Duration
	retryInterval time.Duration
	log           logger.Logger
}

func NewExpiryScheduler(auctionMgr *AuctionManager, bidService *BidService,
	tickInterval, retryInterval time.Duration, log logger.Logger) *ExpiryScheduler {
	cronLog := cronLogger{log: log}
	return &ExpiryScheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		auctionMgr:    auctionMgr,
		bidService:    bidService,
		tickInterval:  tickInterval,
		retryInterval: retryInterval,
		log:           log,
	}
}

func (s *ExpiryScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting expiry scheduler", "tick_interval", s.tickInterval, "retry_interval", s.retryInterval)

	if _, err := s.cron.AddFunc(every(s.tickInterval), func() {
		s.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(every(s.retryInterval), func() {
		s.retry(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *ExpiryScheduler) Stop() error {
	s.log.Info("Stopping expiry scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *ExpiryScheduler) sweep(ctx context.Context) {
	if ended := s.auctionMgr.Tick(ctx); ended > 0 {
		s.log.Info("Sweep ended sessions", "count", ended)
	}
}

func (s *ExpiryScheduler) retry(ctx context.Context) {
	bids := s.bidService.RetryPending(ctx)
	sessions := s.auctionMgr.RetryUnsettled(ctx)
	if bids > 0 || sessions > 0 {
		s.log.Warn("Writes still pending after retry", "bids", bids, "sessions", sessions)
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
