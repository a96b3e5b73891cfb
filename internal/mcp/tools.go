package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/report"
)

// handleVerify implements the verify tool. Failures are reported in the
// output rather than as protocol errors.
func (s *Server) handleVerify(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input VerifyInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	violations, err := s.svc.VerifyResult(ctx, application.VerifyOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
		Reports:    input.Reports,
		ClassDirs:  input.ClassDirs,
		TempDir:    s.config.TempDir,
		Output:     application.OutputJSON,
	})
	if err != nil {
		return nil, ToolOutput{Error: err.Error(), Summary: "verification failed"}, nil
	}
	output := ToolOutput{
		Passed:     len(violations) == 0,
		Violations: violationOutputs(violations),
		Summary:    generateSummary(violations),
	}
	return nil, output, nil
}

// handleCoverage implements the coverage tool.
func (s *Server) handleCoverage(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CoverageInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	opts, err := coverageOptions(input)
	if err != nil {
		return nil, ToolOutput{Error: err.Error()}, nil
	}
	opts.ConfigPath = coalesce(input.ConfigPath, s.config.ConfigPath)
	opts.TempDir = s.config.TempDir

	values, err := s.svc.Coverage(ctx, opts)
	if err != nil {
		return nil, ToolOutput{Error: err.Error()}, nil
	}
	output := ToolOutput{Passed: true, Values: make([]ValueOutput, 0, len(values))}
	for _, v := range values {
		output.Values = append(output.Values, ValueOutput{Entity: entity(v.EntityName), Value: v.Value.String()})
	}
	output.Summary = fmt.Sprintf("%d %s value(s) for %s", len(values), opts.Unit, opts.GroupBy)
	return nil, output, nil
}

func coverageOptions(input CoverageInput) (application.CoverageOptions, error) {
	groupBy, err := domain.ParseGroupingBy(coalesce(input.GroupBy, string(domain.GroupApplication)))
	if err != nil {
		return application.CoverageOptions{}, err
	}
	unit, err := domain.ParseCoverageUnit(coalesce(input.Unit, string(domain.UnitLine)))
	if err != nil {
		return application.CoverageOptions{}, err
	}
	aggregation, err := domain.ParseAggregationType(coalesce(input.Aggregation, string(domain.CoveredPercentage)))
	if err != nil {
		return application.CoverageOptions{}, err
	}
	return application.CoverageOptions{
		GroupBy:     groupBy,
		Unit:        unit,
		Aggregation: aggregation,
		Reports:     input.Reports,
		ClassDirs:   input.ClassDirs,
	}, nil
}

func violationOutputs(violations []domain.RuleViolations) []ViolationOutput {
	var out []ViolationOutput
	for _, rv := range violations {
		for _, v := range rv.Violations {
			out = append(out, ViolationOutput{
				Rule:     rv.Rule.Name,
				Entity:   v.Entity(),
				Unit:     string(v.Bound.Unit),
				Type:     string(v.Bound.Aggregation),
				IsMax:    v.IsMax,
				Value:    v.Value.String(),
				Expected: v.Expected().String(),
				Message:  report.FormatViolation(rv.Rule, v),
			})
		}
	}
	return out
}

func entity(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}

// generateSummary creates a human-readable summary from the violations.
func generateSummary(violations []domain.RuleViolations) string {
	if len(violations) == 0 {
		return "PASS | 0 rules violated"
	}
	bounds := 0
	for _, rv := range violations {
		bounds += len(rv.Violations)
	}
	return fmt.Sprintf("FAIL | %d rules violated | %d bound violations", len(violations), bounds)
}
