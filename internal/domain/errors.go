package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by verification.
var (
	ErrPattern    = errors.New("invalid class pattern")
	ErrConfig     = errors.New("invalid configuration")
	ErrEngineIO   = errors.New("coverage engine failure")
	ErrViolations = errors.New("coverage verification failed")
)

// PatternError reports a class filter template that does not compile.
type PatternError struct {
	Template string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid class pattern %q: %v", e.Template, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

func (e *PatternError) Is(target error) bool { return target == ErrPattern }

// ConfigError reports a rule or bound that cannot be evaluated.
// BoundIndex is -1 when the problem concerns the rule as a whole.
type ConfigError struct {
	RuleIndex  int
	RuleName   string
	BoundIndex int
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.BoundIndex < 0 {
		return fmt.Sprintf("rule #%d %q: %s", e.RuleIndex, e.RuleName, e.Reason)
	}
	return fmt.Sprintf("rule #%d %q, bound #%d: %s", e.RuleIndex, e.RuleName, e.BoundIndex, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// EngineError wraps a failure raised by the coverage engine.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("coverage engine %s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool { return target == ErrEngineIO }
