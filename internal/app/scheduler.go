package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
)

// moversRefreshTimeout bounds one warm_movers run
const moversRefreshTimeout = 30 * time.Second

// Scheduler runs the background cron jobs
type Scheduler struct {
	cron    *cron.Cron
	purgers []interfaces.Purger
	market  interfaces.MarketService
	logger  *common.Logger
	jobs    []string
}

// NewScheduler registers the jobs whose expressions are set. An invalid
// expression is an error; an empty one disables the job.
func NewScheduler(cfg common.SchedulerConfig, purgers []interfaces.Purger, market interfaces.MarketService, logger *common.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purgers: purgers,
		market:  market,
		logger:  logger,
	}

	if cfg.CachePurge != "" {
		if _, err := s.cron.AddFunc(cfg.CachePurge, func() { s.PurgeCaches() }); err != nil {
			return nil, fmt.Errorf("register cache_purge job: %w", err)
		}
		s.jobs = append(s.jobs, "cache_purge")
	}

	if cfg.WarmMovers != "" && market != nil {
		if _, err := s.cron.AddFunc(cfg.WarmMovers, s.warmMovers); err != nil {
			return nil, fmt.Errorf("register warm_movers job: %w", err)
		}
		s.jobs = append(s.jobs, "warm_movers")
	}

	return s, nil
}

// Jobs returns the names of the registered jobs
func (s *Scheduler) Jobs() []string {
	return s.jobs
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Strs("jobs", s.jobs).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// PurgeCaches removes expired entries from every service cache and
// returns how many were dropped.
func (s *Scheduler) PurgeCaches() int {
	start := time.Now()
	total := 0
	for _, p := range s.purgers {
		total += p.PurgeExpired()
	}
	s.logger.Debug().Int("purged", total).Dur("elapsed", time.Since(start)).Msg("Cache purge complete")
	return total
}

func (s *Scheduler) warmMovers() {
	ctx, cancel := context.WithTimeout(context.Background(), moversRefreshTimeout)
	defer cancel()

	if err := s.market.RefreshMarketMovers(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Market movers refresh failed")
		return
	}
	s.logger.Debug().Msg("Market movers refreshed")
}
