package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// Names of the intermediate files the engine writes into the temp dir.
const (
	AggregatedICFile   = "agg-ic.ic"
	AggregatedSMapFile = "agg-smap.smap"
)

// VerifyState is the progress of a single verification.
type VerifyState int

const (
	StateIdle VerifyState = iota
	StateAggregating
	StateEvaluating
	StateDone
	StateFailed
)

func (s VerifyState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAggregating:
		return "aggregating"
	case StateEvaluating:
		return "evaluating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// VerifyRequest is the input of one verification.
type VerifyRequest struct {
	Rules         []domain.Rule
	TempDir       string
	Scope         domain.ClassScope
	BinaryReports []string
	ClassFileDirs []string
	SourceDirs    []string
}

// Verifier evaluates rules against binary reports through a CoverageEngine.
// It aggregates once per call and evaluates all rules in one batch.
type Verifier struct {
	Engine CoverageEngine
	Logger *slog.Logger
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to VerifyState)
}

type verification struct {
	verifier *Verifier
	logger   *slog.Logger
	state    VerifyState
}

func (r *verification) moveTo(ctx context.Context, next VerifyState) {
	r.logger.DebugContext(ctx, "verification state changed",
		slog.String("from", r.state.String()),
		slog.String("to", next.String()))
	if r.verifier.OnTransition != nil {
		r.verifier.OnTransition(r.state, next)
	}
	r.state = next
}

func (r *verification) fail(ctx context.Context, err error) error {
	r.moveTo(ctx, StateFailed)
	return err
}

// Verify checks every rule and returns the sorted violations. Invalid rules
// are rejected before the engine or the file system is touched; engine
// failures are returned as *domain.EngineError.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) ([]domain.RuleViolations, error) {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}
	run := &verification{verifier: v, logger: logger, state: StateIdle}

	if err := domain.ValidateRules(req.Rules); err != nil {
		return nil, run.fail(ctx, err)
	}
	if len(req.Rules) == 0 {
		run.moveTo(ctx, StateDone)
		return nil, nil
	}
	if req.TempDir == "" {
		return nil, run.fail(ctx, fmt.Errorf("%w: temporary directory is required", domain.ErrConfig))
	}
	if v.Engine == nil {
		return nil, run.fail(ctx, errors.New("no coverage engine configured"))
	}

	if err := os.MkdirAll(req.TempDir, 0o750); err != nil {
		return nil, run.fail(ctx, &domain.EngineError{Op: "prepare", Err: err})
	}
	icFile := filepath.Join(req.TempDir, AggregatedICFile)
	smapFile := filepath.Join(req.TempDir, AggregatedSMapFile)

	run.moveTo(ctx, StateAggregating)
	err := v.Engine.Aggregate(ctx, AggregateRequest{
		Scope:         req.Scope,
		ICFile:        icFile,
		SMapFile:      smapFile,
		BinaryReports: req.BinaryReports,
		ClassFileDirs: req.ClassFileDirs,
		SourceDirs:    req.SourceDirs,
	})
	if err != nil {
		return nil, run.fail(ctx, &domain.EngineError{Op: "aggregate", Err: err})
	}

	run.moveTo(ctx, StateEvaluating)
	raw, err := v.Engine.EvaluateRules(ctx, translateRules(req.Rules), icFile)
	if err != nil {
		return nil, run.fail(ctx, &domain.EngineError{Op: "evaluate", Err: err})
	}

	result, err := CollectViolations(req.Rules, raw)
	if err != nil {
		return nil, run.fail(ctx, err)
	}

	run.moveTo(ctx, StateDone)
	logger.InfoContext(ctx, "coverage verified",
		slog.Int("rules", len(req.Rules)),
		slog.Int("violated_rules", len(result)),
		slog.Int("reports", len(req.BinaryReports)))
	return result, nil
}
