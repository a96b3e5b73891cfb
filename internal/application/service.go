package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// Service is the entry point used by the CLI and the MCP server. It wires
// the ports into the individual handlers.
type Service struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	Engine       CoverageEngine
	Reports      ReportGenerator
	HTMLReports  ReportGenerator
	Merger       ReportMerger
	Instrumenter Instrumenter
	Locker       ScratchLocker
	Reporter     Reporter
	Logger       *slog.Logger
	Out          io.Writer
}

func (s *Service) verifyHandler() *VerifyHandler {
	return &VerifyHandler{
		ConfigLoader: s.ConfigLoader,
		Engine:       s.Engine,
		Locker:       s.Locker,
		Logger:       s.Logger,
	}
}

func (s *Service) reportHandler() *ReportHandler {
	return &ReportHandler{
		ConfigLoader: s.ConfigLoader,
		Reports:      s.Reports,
		HTMLReports:  s.HTMLReports,
		Merger:       s.Merger,
		Instrumenter: s.Instrumenter,
		Logger:       s.Logger,
	}
}

// VerifyResult returns the violations of the configured rules without
// writing anything.
func (s *Service) VerifyResult(ctx context.Context, opts VerifyOptions) ([]domain.RuleViolations, error) {
	return s.verifyHandler().VerifyResult(ctx, opts)
}

// Verify writes the violations to Out and returns ErrViolations when any
// rule is broken.
func (s *Service) Verify(ctx context.Context, opts VerifyOptions) error {
	violations, err := s.VerifyResult(ctx, opts)
	if err != nil {
		return err
	}
	if err := s.Reporter.Write(s.Out, violations, opts.Output); err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %d rule(s) violated", domain.ErrViolations, len(violations))
	}
	return nil
}

func (s *Service) Coverage(ctx context.Context, opts CoverageOptions) ([]domain.CoverageValue, error) {
	return s.verifyHandler().Coverage(ctx, opts)
}

// Badge computes the application line coverage shown on a badge.
func (s *Service) Badge(ctx context.Context, opts BadgeOptions) (BadgeResult, error) {
	values, err := s.Coverage(ctx, CoverageOptions{
		ConfigPath:  opts.ConfigPath,
		GroupBy:     domain.GroupApplication,
		Unit:        domain.UnitLine,
		Aggregation: domain.CoveredPercentage,
		Reports:     opts.Reports,
		ClassDirs:   opts.ClassDirs,
		TempDir:     opts.TempDir,
	})
	if err != nil {
		return BadgeResult{}, err
	}
	if len(values) == 0 {
		return BadgeResult{}, nil
	}
	percent, _ := values[0].Value.Round(1).Float64()
	return BadgeResult{Percent: percent}, nil
}

func (s *Service) Report(ctx context.Context, opts ReportOptions) error {
	return s.reportHandler().Report(ctx, opts)
}

func (s *Service) Merge(ctx context.Context, opts MergeOptions) error {
	return s.reportHandler().Merge(ctx, opts)
}

func (s *Service) Instrument(ctx context.Context, opts InstrumentOptions) error {
	return s.reportHandler().Instrument(ctx, opts)
}

// Watch runs verification in a loop, re-running when reports change.
func (s *Service) Watch(ctx context.Context, opts VerifyOptions, watcher FileWatcher, callback WatchCallback) error {
	handler := &WatchHandler{Verify: s.verifyHandler()}
	return handler.Watch(ctx, opts, watcher, callback)
}

// LoadConfig returns the configuration at path, or an empty one when the
// file does not exist.
func (s *Service) LoadConfig(path string) (Config, error) {
	return loadConfig(s.ConfigLoader, path, true)
}

// Detect returns the configuration at opts.ConfigPath with every missing
// input filled in from the detected build outputs.
func (s *Service) Detect(ctx context.Context, opts DetectOptions) (Config, error) {
	cfg, err := loadConfig(s.ConfigLoader, opts.ConfigPath, true)
	if err != nil {
		return Config{}, err
	}
	if s.Autodetector == nil {
		return cfg, nil
	}
	detected, err := s.Autodetector.Detect()
	if err != nil {
		return Config{}, err
	}
	cfg.Reports = override(cfg.Reports, detected.Reports)
	cfg.ClassDirs = override(cfg.ClassDirs, detected.ClassDirs)
	cfg.SourceDirs = override(cfg.SourceDirs, detected.SourceDirs)
	cfg.TempDir = overrideString(cfg.TempDir, detected.TempDir, "")
	loggerOrDefault(s.Logger).DebugContext(ctx, "build outputs detected",
		slog.Int("reports", len(detected.Reports)),
		slog.Int("classDirs", len(detected.ClassDirs)))
	return cfg, nil
}
