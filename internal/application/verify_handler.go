package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// VerifyHandler handles rule verification and coverage queries.
type VerifyHandler struct {
	ConfigLoader ConfigLoader
	Engine       CoverageEngine
	Locker       ScratchLocker
	Logger       *slog.Logger
}

// VerifyResult loads the configured rules and returns their violations.
func (h *VerifyHandler) VerifyResult(ctx context.Context, opts VerifyOptions) ([]domain.RuleViolations, error) {
	cfg, err := loadConfig(h.ConfigLoader, opts.ConfigPath, false)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRules(cfg.Rules); err != nil {
		return nil, err
	}
	if len(cfg.Rules) == 0 {
		return nil, nil
	}

	scope, err := domain.NewClassScope(cfg.Filters)
	if err != nil {
		return nil, err
	}
	reports := override(opts.Reports, cfg.Reports)
	if err := requireReports(reports); err != nil {
		return nil, err
	}

	return h.run(ctx, VerifyRequest{
		Rules:         cfg.Rules,
		TempDir:       overrideString(opts.TempDir, cfg.TempDir, DefaultTempDir),
		Scope:         scope,
		BinaryReports: reports,
		ClassFileDirs: override(opts.ClassDirs, cfg.ClassDirs),
		SourceDirs:    cfg.SourceDirs,
	})
}

// Coverage evaluates one metric for every entity of the grouping.
// It runs the verifier with a bound that every value breaks and keeps one
// value per entity.
func (h *VerifyHandler) Coverage(ctx context.Context, opts CoverageOptions) ([]domain.CoverageValue, error) {
	cfg, err := loadConfig(h.ConfigLoader, opts.ConfigPath, true)
	if err != nil {
		return nil, err
	}
	scope, err := domain.NewClassScope(cfg.Filters)
	if err != nil {
		return nil, err
	}
	reports := override(opts.Reports, cfg.Reports)
	if err := requireReports(reports); err != nil {
		return nil, err
	}

	probe := domain.Rule{
		Name:    "coverage",
		GroupBy: opts.GroupBy,
		Bounds: []domain.Bound{{
			MinValue:    domain.Value(decimal.NewFromInt(100)),
			MaxValue:    domain.Value(decimal.Zero),
			Unit:        opts.Unit,
			Aggregation: opts.Aggregation,
		}},
	}
	if err := domain.ValidateRules([]domain.Rule{probe}); err != nil {
		return nil, err
	}
	violations, err := h.run(ctx, VerifyRequest{
		Rules:         []domain.Rule{probe},
		TempDir:       overrideString(opts.TempDir, cfg.TempDir, DefaultTempDir),
		Scope:         scope,
		BinaryReports: reports,
		ClassFileDirs: override(opts.ClassDirs, cfg.ClassDirs),
		SourceDirs:    cfg.SourceDirs,
	})
	if err != nil {
		return nil, err
	}
	return coverageValues(violations), nil
}

func (h *VerifyHandler) run(ctx context.Context, req VerifyRequest) ([]domain.RuleViolations, error) {
	logger := loggerOrDefault(h.Logger)
	if h.Locker != nil {
		logger.DebugContext(ctx, "locking scratch directory", slog.String("dir", req.TempDir))
		unlock, err := h.Locker.Lock(req.TempDir)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", req.TempDir, err)
		}
		defer func() {
			if err := unlock.Unlock(); err != nil {
				logger.WarnContext(ctx, "failed to release scratch lock", slog.String("dir", req.TempDir), slog.Any("error", err))
			}
		}()
	}
	verifier := &Verifier{Engine: h.Engine, Logger: logger}
	return verifier.Verify(ctx, req)
}

// coverageValues keeps the first violation of each entity. Violations are
// already sorted, so the result is ordered by entity name.
func coverageValues(violations []domain.RuleViolations) []domain.CoverageValue {
	var values []domain.CoverageValue
	seen := make(map[string]bool)
	appNameSeen := false
	for _, rv := range violations {
		for _, v := range rv.Violations {
			if v.EntityName == nil {
				if appNameSeen {
					continue
				}
				appNameSeen = true
			} else {
				if seen[*v.EntityName] {
					continue
				}
				seen[*v.EntityName] = true
			}
			values = append(values, domain.CoverageValue{EntityName: v.EntityName, Value: v.Value})
		}
	}
	return values
}
