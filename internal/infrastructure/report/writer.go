// Package report renders verification results for terminals, scripts and
// agents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
)

type Writer struct{}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
)

type jsonViolation struct {
	Bound       string          `json:"bound"`
	Unit        string          `json:"unit"`
	Aggregation string          `json:"aggregation"`
	Entity      *string         `json:"entity,omitempty"`
	IsMax       bool            `json:"isMax"`
	Value       decimal.Decimal `json:"value"`
	Expected    decimal.Decimal `json:"expected"`
	Message     string          `json:"message"`
}

type jsonRule struct {
	Name       string          `json:"name,omitempty"`
	GroupBy    string          `json:"groupBy"`
	Violations []jsonViolation `json:"violations"`
}

func (Writer) Write(w io.Writer, violations []domain.RuleViolations, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		payload := struct {
			Rules   []jsonRule `json:"rules"`
			Summary struct {
				Pass          bool `json:"pass"`
				ViolatedRules int  `json:"violatedRules"`
			} `json:"summary"`
		}{Rules: make([]jsonRule, 0, len(violations))}
		for _, rv := range violations {
			rule := jsonRule{Name: rv.Rule.Name, GroupBy: string(rv.Rule.GroupBy)}
			for _, v := range rv.Violations {
				rule.Violations = append(rule.Violations, jsonViolation{
					Bound:       v.Bound.String(),
					Unit:        string(v.Bound.Unit),
					Aggregation: string(v.Bound.Aggregation),
					Entity:      v.EntityName,
					IsMax:       v.IsMax,
					Value:       v.Value,
					Expected:    v.Expected(),
					Message:     FormatViolation(rv.Rule, v),
				})
			}
			payload.Rules = append(payload.Rules, rule)
		}
		payload.Summary.Pass = len(violations) == 0
		payload.Summary.ViolatedRules = len(violations)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case application.OutputBrief:
		return writeBrief(w, violations)
	case application.OutputText, "":
		return writeText(w, violations)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, violations []domain.RuleViolations) error {
	colorize := colorEnabled(w)
	if len(violations) == 0 {
		status := "PASS"
		if colorize {
			status = passStyle.Render(status)
		}
		_, err := fmt.Fprintf(w, "%s coverage verification passed\n", status)
		return err
	}
	message := FormatViolations(violations)
	if colorize {
		message = strings.ReplaceAll(message, " violated:", " "+failStyle.Render("violated")+":")
	}
	_, err := io.WriteString(w, message)
	return err
}

// writeBrief outputs a single-line summary optimized for LLM/agent consumption.
// Format: STATUS | N rules violated [| rule: entity (value, expected minimum X); ...]
func writeBrief(w io.Writer, violations []domain.RuleViolations) error {
	if len(violations) == 0 {
		_, err := fmt.Fprintln(w, "PASS | 0 rules violated")
		return err
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FAIL | %d rules violated |", len(violations)))
	for i, rv := range violations {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(" " + ruleLabel(rv.Rule) + ":")
		for j, v := range rv.Violations {
			if j > 0 {
				sb.WriteString(",")
			}
			entity := v.Entity()
			if entity == "" {
				entity = "application"
			}
			sb.WriteString(fmt.Sprintf(" %s (%s, expected %s %s)", entity, v.Value, direction(v.IsMax), v.Expected()))
		}
	}
	sb.WriteString("\n")
	_, err := w.Write([]byte(sb.String()))
	return err
}

// FormatViolations renders violations as one block per rule.
func FormatViolations(violations []domain.RuleViolations) string {
	var sb strings.Builder
	for _, rv := range violations {
		named := "Rule"
		if rv.Rule.Name != "" {
			named = fmt.Sprintf("Rule '%s'", rv.Rule.Name)
		}
		if len(rv.Violations) == 1 {
			sb.WriteString(fmt.Sprintf("%s violated: %s\n", named, FormatViolation(rv.Rule, rv.Violations[0])))
			continue
		}
		sb.WriteString(named + " violated:\n")
		for _, v := range rv.Violations {
			sb.WriteString("  " + FormatViolation(rv.Rule, v) + "\n")
		}
	}
	return sb.String()
}

// FormatViolation describes a single failed bound, for example
// "lines covered percentage for class 'com.a.A' is 60, but expected minimum is 80".
func FormatViolation(rule domain.Rule, v domain.BoundViolation) string {
	var entity string
	switch rule.GroupBy {
	case domain.GroupClass:
		entity = fmt.Sprintf(" for class '%s'", v.Entity())
	case domain.GroupPackage:
		entity = fmt.Sprintf(" for package '%s'", v.Entity())
	}
	return fmt.Sprintf("%s %s%s is %s, but expected %s is %s",
		metricText(v.Bound.Unit), aggregationText(v.Bound.Aggregation), entity,
		v.Value, direction(v.IsMax), v.Expected())
}

func ruleLabel(rule domain.Rule) string {
	if rule.Name != "" {
		return rule.Name
	}
	return "rule"
}

func direction(isMax bool) string {
	if isMax {
		return "maximum"
	}
	return "minimum"
}

func metricText(unit domain.CoverageUnit) string {
	switch unit {
	case domain.UnitInstruction:
		return "instructions"
	case domain.UnitBranch:
		return "branches"
	default:
		return "lines"
	}
}

func aggregationText(a domain.AggregationType) string {
	return strings.ToLower(strings.ReplaceAll(string(a), "_", " "))
}

// WriteCoverage renders evaluated coverage values.
func WriteCoverage(w io.Writer, values []domain.CoverageValue, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if values == nil {
			values = []domain.CoverageValue{}
		}
		return enc.Encode(values)
	case application.OutputBrief:
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%s=%s", entityLabel(v.EntityName), v.Value.StringFixed(2)))
		}
		_, err := fmt.Fprintln(w, strings.Join(parts, " "))
		return err
	case application.OutputText, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "Entity\tValue")
		for _, v := range values {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", entityLabel(v.EntityName), v.Value.StringFixed(2))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func entityLabel(name *string) string {
	switch {
	case name == nil:
		return "application"
	case *name == "":
		return "<default>"
	default:
		return *name
	}
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
