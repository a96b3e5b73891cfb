// Package mcp exposes covergate verification to agents over the Model
// Context Protocol.
package mcp

import (
	"context"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
)

// Service defines the application operations needed by MCP.
type Service interface {
	VerifyResult(ctx context.Context, opts application.VerifyOptions) ([]domain.RuleViolations, error)
	Coverage(ctx context.Context, opts application.CoverageOptions) ([]domain.CoverageValue, error)
	LoadConfig(path string) (application.Config, error)
}

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string // Path to .covergate.yaml (default: ".covergate.yaml")
	TempDir    string // Scratch directory override, empty uses the config file
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() Config {
	return Config{ConfigPath: ".covergate.yaml"}
}

// VerifyInput defines the input parameters for the verify tool.
type VerifyInput struct {
	ConfigPath string   `json:"configPath,omitempty" jsonschema:"Path to the .covergate.yaml config file"`
	Reports    []string `json:"reports,omitempty" jsonschema:"Coverage reports to verify, overriding the config file"`
	ClassDirs  []string `json:"classDirs,omitempty" jsonschema:"Compiled class directories, overriding the config file"`
}

// CoverageInput defines the input parameters for the coverage tool.
type CoverageInput struct {
	ConfigPath  string   `json:"configPath,omitempty" jsonschema:"Path to the .covergate.yaml config file"`
	GroupBy     string   `json:"groupBy,omitempty" jsonschema:"APPLICATION, PACKAGE or CLASS (default APPLICATION)"`
	Unit        string   `json:"unit,omitempty" jsonschema:"LINE, INSTRUCTION or BRANCH (default LINE)"`
	Aggregation string   `json:"aggregation,omitempty" jsonschema:"COVERED_PERCENTAGE, MISSED_PERCENTAGE, COVERED_COUNT or MISSED_COUNT (default COVERED_PERCENTAGE)"`
	Reports     []string `json:"reports,omitempty" jsonschema:"Coverage reports to evaluate, overriding the config file"`
	ClassDirs   []string `json:"classDirs,omitempty" jsonschema:"Compiled class directories, overriding the config file"`
}

// ViolationOutput is one failed bound.
type ViolationOutput struct {
	Rule     string `json:"rule"`
	Entity   string `json:"entity,omitempty"`
	Unit     string `json:"unit"`
	Type     string `json:"aggregation"`
	IsMax    bool   `json:"isMax"`
	Value    string `json:"value"`
	Expected string `json:"expected"`
	Message  string `json:"message"`
}

// ValueOutput is the coverage of one entity.
type ValueOutput struct {
	Entity string `json:"entity,omitempty"`
	Value  string `json:"value"`
}

// ToolOutput represents the common output structure for tools.
type ToolOutput struct {
	Passed     bool              `json:"passed"`
	Summary    string            `json:"summary,omitempty"`
	Violations []ViolationOutput `json:"violations,omitempty"`
	Values     []ValueOutput     `json:"values,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// coalesce returns value if non-empty, otherwise fallback.
func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
