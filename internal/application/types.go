package application

import (
	"context"
	"errors"
	"io"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

type OutputFormat string

const (
	OutputText  OutputFormat = "text"
	OutputJSON  OutputFormat = "json"
	OutputBrief OutputFormat = "brief"
)

var ErrConfigNotFound = errors.New("config not found")

// Config represents validated, application-ready configuration.
type Config struct {
	Filters    domain.ClassFilters `json:"filters"`
	Rules      []domain.Rule       `json:"rules"`
	Reports    []string            `json:"reports,omitempty"`    // Binary reports to verify
	ClassDirs  []string            `json:"classfiles,omitempty"` // Compiled class-file roots
	SourceDirs []string            `json:"sources,omitempty"`    // Source roots, used by reports only
	TempDir    string              `json:"tempDir,omitempty"`    // Scratch directory for intermediate engine files
	Engine     EngineConfig        `json:"engine"`
}

// EngineConfig locates the external kover CLI used for instrumentation and
// HTML reports.
type EngineConfig struct {
	KoverCLI string `json:"koverCli,omitempty"` // Path to kover-cli jar
	Java     string `json:"java,omitempty"`     // Java executable (default: java)
}

// DefaultTempDir is used when neither config nor flags name a temp dir.
const DefaultTempDir = ".cover/tmp"

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

// Autodetector finds build outputs in the project.
type Autodetector interface {
	Detect() (Config, error)
}

type Reporter interface {
	Write(w io.Writer, violations []domain.RuleViolations, format OutputFormat) error
}

// Unlocker releases a scratch directory lock.
type Unlocker interface {
	Unlock() error
}

// ScratchLocker serialises engine runs that share a temp dir.
type ScratchLocker interface {
	Lock(dir string) (Unlocker, error)
}

// FileWatcher provides file change notifications.
type FileWatcher interface {
	WatchDir(root string) error
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

// WatchCallback is invoked after every verification run in watch mode.
type WatchCallback func(runNumber int, violations []domain.RuleViolations, err error)

// VerifyOptions selects the inputs of a verification. Non-empty fields
// override the config file.
type VerifyOptions struct {
	ConfigPath string
	Reports    []string
	ClassDirs  []string
	TempDir    string
	Output     OutputFormat
}

// CoverageOptions selects the metric evaluated by Coverage.
type CoverageOptions struct {
	ConfigPath  string
	GroupBy     domain.GroupingBy
	Unit        domain.CoverageUnit
	Aggregation domain.AggregationType
	Reports     []string
	ClassDirs   []string
	TempDir     string
}

type ReportOptions struct {
	ConfigPath string
	Reports    []string
	ClassDirs  []string
	SourceDirs []string
	XMLFile    string
	HTMLDir    string
	Title      string
}

type DetectOptions struct {
	ConfigPath string
}

type MergeOptions struct {
	Target  string
	Reports []string
}

type InstrumentOptions struct {
	ConfigPath string
	OutputDir  string
	ClassDirs  []string
	CountHits  bool
}

type BadgeOptions struct {
	ConfigPath string
	Reports    []string
	ClassDirs  []string
	TempDir    string
}

type BadgeResult struct {
	Percent float64
}
