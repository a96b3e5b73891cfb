// Package config reads and writes .covergate.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
	"github.com/felixgeelhaar/covergate/internal/pathutil"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = ".covergate.yaml"

type Loader struct{}

type fileConfig struct {
	Filters    fileFilters `yaml:"filters,omitempty"`
	Reports    []string    `yaml:"reports,omitempty"`
	ClassFiles []string    `yaml:"classfiles,omitempty"`
	Sources    []string    `yaml:"sources,omitempty"`
	TempDir    string      `yaml:"tempDir,omitempty"`
	Engine     fileEngine  `yaml:"engine,omitempty"`
	Rules      []fileRule  `yaml:"rules,omitempty"`
}

type fileFilters struct {
	Includes           []string `yaml:"includes,omitempty"`
	Excludes           []string `yaml:"excludes,omitempty"`
	ExcludeAnnotations []string `yaml:"excludeAnnotations,omitempty"`
}

type fileEngine struct {
	KoverCLI string `yaml:"koverCli,omitempty"`
	Java     string `yaml:"java,omitempty"`
}

type fileRule struct {
	Name    string      `yaml:"name,omitempty"`
	GroupBy string      `yaml:"groupBy,omitempty"`
	Bounds  []fileBound `yaml:"bounds"`
}

type fileBound struct {
	Unit        string       `yaml:"unit,omitempty"`
	Aggregation string       `yaml:"aggregation,omitempty"`
	Min         *fileDecimal `yaml:"min,omitempty"`
	Max         *fileDecimal `yaml:"max,omitempty"`
}

// fileDecimal keeps the exact digits written in the file.
type fileDecimal struct {
	decimal.Decimal
}

func (d *fileDecimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", node.Line, node.Value)
	}
	d.Decimal = v
	return nil
}

func (d fileDecimal) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: d.String()}, nil
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (application.Config, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return application.Config{}, fmt.Errorf("invalid config path: %w", err)
	}
	raw, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return application.Config{}, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return application.Config{}, fmt.Errorf("%w: %s: %w", domain.ErrConfig, path, err)
	}

	rules := make([]domain.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rule := domain.Rule{
			Name:    r.Name,
			GroupBy: domain.GroupingBy(normalize(r.GroupBy, string(domain.GroupApplication))),
			Bounds:  make([]domain.Bound, 0, len(r.Bounds)),
		}
		for _, b := range r.Bounds {
			rule.Bounds = append(rule.Bounds, domain.Bound{
				MinValue:    b.Min.value(),
				MaxValue:    b.Max.value(),
				Unit:        domain.CoverageUnit(normalize(b.Unit, string(domain.UnitLine))),
				Aggregation: domain.AggregationType(normalize(b.Aggregation, string(domain.CoveredPercentage))),
			})
		}
		rules = append(rules, rule)
	}

	return application.Config{
		Filters: domain.ClassFilters{
			Includes:           cfg.Filters.Includes,
			Excludes:           cfg.Filters.Excludes,
			ExcludeAnnotations: cfg.Filters.ExcludeAnnotations,
		},
		Rules:      rules,
		Reports:    cfg.Reports,
		ClassDirs:  cfg.ClassFiles,
		SourceDirs: cfg.Sources,
		TempDir:    cfg.TempDir,
		Engine:     application.EngineConfig{KoverCLI: cfg.Engine.KoverCLI, Java: cfg.Engine.Java},
	}, nil
}

// normalize upper-cases an enum name. Unknown names are kept so rule
// validation can report them.
func normalize(value, fallback string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func (d *fileDecimal) value() *decimal.Decimal {
	if d == nil {
		return nil
	}
	return domain.Value(d.Decimal)
}

func toFileDecimal(v *decimal.Decimal) *fileDecimal {
	if v == nil {
		return nil
	}
	return &fileDecimal{Decimal: *v}
}

func Write(w io.Writer, cfg application.Config) error {
	out := fileConfig{
		Filters: fileFilters{
			Includes:           cfg.Filters.Includes,
			Excludes:           cfg.Filters.Excludes,
			ExcludeAnnotations: cfg.Filters.ExcludeAnnotations,
		},
		Reports:    cfg.Reports,
		ClassFiles: cfg.ClassDirs,
		Sources:    cfg.SourceDirs,
		TempDir:    cfg.TempDir,
		Engine:     fileEngine{KoverCLI: cfg.Engine.KoverCLI, Java: cfg.Engine.Java},
		Rules:      make([]fileRule, 0, len(cfg.Rules)),
	}
	for _, r := range cfg.Rules {
		rule := fileRule{Name: r.Name, GroupBy: string(r.GroupBy)}
		for _, b := range r.Bounds {
			rule.Bounds = append(rule.Bounds, fileBound{
				Unit:        string(b.Unit),
				Aggregation: string(b.Aggregation),
				Min:         toFileDecimal(b.MinValue),
				Max:         toFileDecimal(b.MaxValue),
			})
		}
		out.Rules = append(out.Rules, rule)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
