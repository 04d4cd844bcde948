package instancesync

import (
	"context"
	"sync"
	"time"

	"incus-sync/core/reconcile"

	"go.uber.org/zap"
)

// Service is the trigger surface of the sync engine.
type Service struct {
	orchestrator *Orchestrator
	archive      *ReportArchive
	cfg          Config
	logger       *zap.Logger

	mu   sync.Mutex
	last *RunResult
}

// NewService creates the sync service. archive may be nil.
func NewService(orchestrator *Orchestrator, archive *ReportArchive, cfg Config, logger *zap.Logger) *Service {
	return &Service{orchestrator: orchestrator, archive: archive, cfg: cfg, logger: logger}
}

// Options returns the configured write policy, with prune forced on when
// requested.
func (s *Service) Options(prune, dryRun bool) reconcile.Options {
	opts := s.orchestrator.DefaultOptions()
	opts.Prune = opts.Prune || prune
	opts.DryRun = dryRun
	return opts
}

// Run synchronizes one host, or every enabled host when target is "" or "all".
// The result is archived when an archive is configured; archive failures are
// logged and do not fail the run.
func (s *Service) Run(ctx context.Context, target string, opts reconcile.Options) (*RunResult, error) {
	var (
		res *RunResult
		err error
	)
	if target == "" || target == "all" {
		res, err = s.orchestrator.SyncAll(ctx, opts)
	} else {
		res, err = s.orchestrator.SyncHost(ctx, target, opts)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if s.archive != nil && !opts.DryRun {
		s.archiveRun(context.WithoutCancel(ctx), res)
	}
	return res, nil
}

// Last returns the result of the latest run, or nil.
func (s *Service) Last() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Archive returns the report archive, or nil when archiving is disabled.
func (s *Service) Archive() *ReportArchive {
	return s.archive
}

func (s *Service) archiveRun(ctx context.Context, res *RunResult) {
	if _, err := s.archive.Save(ctx, res); err != nil {
		s.logger.Error("Failed to archive sync report", zap.String("run_id", res.RunID), zap.Error(err))
		return
	}
	if s.cfg.ReportRetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.cfg.ReportRetentionDays)
	if _, err := s.archive.Prune(ctx, cutoff); err != nil {
		s.logger.Warn("Failed to prune old sync reports", zap.Error(err))
	}
}
