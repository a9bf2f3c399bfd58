package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type tokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type exportPruner interface {
	PruneExports(ctx context.Context) (int, error)
}

// Scheduler runs the housekeeping jobs: expired refresh tokens are dropped
// nightly and stale export objects are pruned.
type Scheduler struct {
	cron    *cron.Cron
	tokens  tokenPurger
	exports exportPruner
	log     zerolog.Logger
}

func NewScheduler(tokens tokenPurger, exports exportPruner, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		tokens:  tokens,
		exports: exports,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeTokens); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.pruneExports); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to a grace period.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh token purge failed")
		return
	}
	s.log.Info().Int64("purged", purged).Msg("expired refresh tokens purged")
}

func (s *Scheduler) pruneExports() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pruned, err := s.exports.PruneExports(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("export prune failed")
		return
	}
	s.log.Info().Int("pruned", pruned).Msg("stale exports pruned")
}
