// Package wizard implements the interactive editor behind `covergate init`.
package wizard

import (
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
)

type (
	wizardState int

	initWizardModel struct {
		state     wizardState
		cfg       application.Config
		rules     []domain.Rule
		rows      []wizardRow
		cursor    int
		confirmed bool
		aborted   bool
	}

	// wizardRow is one editable bound.
	wizardRow struct {
		rule  int
		bound int
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

var (
	groupings    = []domain.GroupingBy{domain.GroupApplication, domain.GroupClass, domain.GroupPackage}
	units        = []domain.CoverageUnit{domain.UnitLine, domain.UnitInstruction, domain.UnitBranch}
	aggregations = []domain.AggregationType{domain.CoveredPercentage, domain.MissedPercentage, domain.CoveredCount, domain.MissedCount}
	hundred      = decimal.NewFromInt(100)
)

// StarterRules are offered when the configuration defines no rules.
func StarterRules() []domain.Rule {
	return []domain.Rule{
		{
			Name:    "application lines",
			GroupBy: domain.GroupApplication,
			Bounds: []domain.Bound{{
				MinValue:    domain.Value(decimal.NewFromInt(80)),
				Unit:        domain.UnitLine,
				Aggregation: domain.CoveredPercentage,
			}},
		},
		{
			Name:    "class lines",
			GroupBy: domain.GroupClass,
			Bounds: []domain.Bound{{
				MinValue:    domain.Value(decimal.NewFromInt(50)),
				Unit:        domain.UnitLine,
				Aggregation: domain.CoveredPercentage,
			}},
		},
	}
}

// Run lets the user review the rules of cfg. It reports false when the
// wizard was cancelled.
func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	return runInitWizard(cfg, stdout, stdin)
}

func runInitWizard(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.toConfig(), true, nil
}

func newInitWizardModel(cfg application.Config) *initWizardModel {
	rules := cloneRules(cfg.Rules)
	if len(rules) == 0 {
		rules = StarterRules()
	}
	var rows []wizardRow
	for i, rule := range rules {
		for j := range rule.Bounds {
			rows = append(rows, wizardRow{rule: i, bound: j})
		}
	}
	return &initWizardModel{
		state: stateIntro,
		cfg:   cfg,
		rules: rules,
		rows:  rows,
	}
}

func cloneRules(rules []domain.Rule) []domain.Rule {
	out := make([]domain.Rule, len(rules))
	for i, r := range rules {
		out[i] = r
		out[i].Bounds = slices.Clone(r.Bounds)
	}
	return out
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "q":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		switch m.state {
		case stateIntro:
			m.state = stateEdit
		case stateEdit:
			m.state = stateConfirm
		case stateConfirm:
			m.confirmed = true
			return m, tea.Quit
		}
	case "esc":
		if m.state == stateConfirm {
			m.state = stateEdit
		}
	}
	if m.state != stateEdit {
		return m, nil
	}
	switch key.String() {
	case "up":
		m.moveCursor(-1)
	case "down":
		m.moveCursor(1)
	case "left", "-":
		m.adjustSelection(-1)
	case "right", "+":
		m.adjustSelection(1)
	case "g":
		m.cycleGrouping()
	case "u":
		m.cycleUnit()
	case "a":
		m.cycleAggregation()
	}
	return m, nil
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) moveCursor(delta int) {
	m.cursor = max(0, min(m.cursor+delta, len(m.rows)-1))
}

func (m *initWizardModel) selected() (*domain.Rule, *domain.Bound) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil, nil
	}
	row := m.rows[m.cursor]
	rule := &m.rules[row.rule]
	return rule, &rule.Bounds[row.bound]
}

// step is 5 points for percentages and 1 for counts.
func step(b *domain.Bound) decimal.Decimal {
	if b.Aggregation.IsPercentage() {
		return decimal.NewFromInt(5)
	}
	return decimal.NewFromInt(1)
}

// adjustSelection moves the bound's min, or its max when only a max is set.
func (m *initWizardModel) adjustSelection(direction int64) {
	_, b := m.selected()
	if b == nil {
		return
	}
	delta := step(b).Mul(decimal.NewFromInt(direction))
	target := &b.MinValue
	if b.MinValue == nil && b.MaxValue != nil {
		target = &b.MaxValue
	}
	current := decimal.Zero
	if *target != nil {
		current = **target
	}
	*target = domain.Value(clamp(current.Add(delta), b.Aggregation))
}

func (m *initWizardModel) cycleGrouping() {
	rule, _ := m.selected()
	if rule == nil {
		return
	}
	rule.GroupBy = next(groupings, rule.GroupBy)
}

func (m *initWizardModel) cycleUnit() {
	_, b := m.selected()
	if b == nil {
		return
	}
	b.Unit = next(units, b.Unit)
}

func (m *initWizardModel) cycleAggregation() {
	_, b := m.selected()
	if b == nil {
		return
	}
	b.Aggregation = next(aggregations, b.Aggregation)
	if b.MinValue != nil {
		b.MinValue = domain.Value(clamp(*b.MinValue, b.Aggregation))
	}
	if b.MaxValue != nil {
		b.MaxValue = domain.Value(clamp(*b.MaxValue, b.Aggregation))
	}
}

func next[T comparable](values []T, current T) T {
	i := slices.Index(values, current)
	return values[(i+1)%len(values)]
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\ncovergate init wizard\n\n")
	fmt.Fprintf(&b, "%d rules with %d bounds will be written. The wizard helps you review the thresholds.\n\n", len(m.rules), len(m.rows))
	fmt.Fprintf(&b, "Press Enter to continue, or Ctrl+C to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReview and adjust bounds\n\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move, ←/→ or +/- to change values, g/u/a to cycle grouping, unit and aggregation.\n\n")
	for idx, row := range m.rows {
		prefix := "  "
		if m.cursor == idx {
			prefix = "> "
		}
		rule := m.rules[row.rule]
		fmt.Fprintf(&b, "%s%s [%s] %s\n", prefix, ruleName(rule, row.rule), rule.GroupBy, rule.Bounds[row.bound])
	}
	fmt.Fprintf(&b, "\nEnter to continue, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write configuration\n\n")
	for i, rule := range m.rules {
		fmt.Fprintf(&b, "%s (%s):\n", ruleName(rule, i), rule.GroupBy)
		for _, bound := range rule.Bounds {
			fmt.Fprintf(&b, "  %s\n", bound)
		}
	}
	filters := m.cfg.Filters
	if filters.IsEmpty() {
		fmt.Fprintf(&b, "\nNo class filters configured.\n")
	} else {
		fmt.Fprintf(&b, "\nConfigured class filters:\n")
		for _, pattern := range filters.Includes {
			fmt.Fprintf(&b, "  + %s\n", pattern)
		}
		for _, pattern := range filters.Excludes {
			fmt.Fprintf(&b, "  - %s\n", pattern)
		}
		for _, pattern := range filters.ExcludeAnnotations {
			fmt.Fprintf(&b, "  - @%s\n", pattern)
		}
	}
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

func ruleName(rule domain.Rule, index int) string {
	if rule.Name != "" {
		return rule.Name
	}
	return fmt.Sprintf("rule #%d", index+1)
}

func (m *initWizardModel) toConfig() application.Config {
	cfg := m.cfg
	cfg.Rules = cloneRules(m.rules)
	return cfg
}

// clamp keeps percentages within 0..100 and counts non-negative.
func clamp(value decimal.Decimal, aggregation domain.AggregationType) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	if aggregation.IsPercentage() && value.GreaterThan(hundred) {
		return hundred
	}
	return value
}
