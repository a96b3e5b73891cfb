package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/autodetect"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/badge"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/config"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/engine/jacoco"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/engine/kovercli"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/report"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/scratch"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/watcher"
	"github.com/felixgeelhaar/covergate/internal/infrastructure/wizard"
	covermcp "github.com/felixgeelhaar/covergate/internal/mcp"
)

// Exit codes.
const (
	exitOK         = 0
	exitViolations = 1
	exitUsage      = 2
	exitRuntime    = 3
)

type Service interface {
	Verify(ctx context.Context, opts application.VerifyOptions) error
	VerifyResult(ctx context.Context, opts application.VerifyOptions) ([]domain.RuleViolations, error)
	Coverage(ctx context.Context, opts application.CoverageOptions) ([]domain.CoverageValue, error)
	Report(ctx context.Context, opts application.ReportOptions) error
	Merge(ctx context.Context, opts application.MergeOptions) error
	Instrument(ctx context.Context, opts application.InstrumentOptions) error
	Badge(ctx context.Context, opts application.BadgeOptions) (application.BadgeResult, error)
	Watch(ctx context.Context, opts application.VerifyOptions, watcher application.FileWatcher, callback application.WatchCallback) error
	LoadConfig(path string) (application.Config, error)
	Detect(ctx context.Context, opts application.DetectOptions) (application.Config, error)
}

var initWizard = wizard.Run

var stdin io.Reader = os.Stdin

var serveMCP = func(ctx context.Context, svc covermcp.Service, cfg covermcp.Config) error {
	return covermcp.New(svc, cfg).Run(ctx)
}

func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return exitUsage
	}

	ctx := context.Background()

	switch args[1] {
	case "verify":
		fs := newFlagSet("verify", stderr)
		common := commonFlags(fs)
		output := outputFlags(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		err := svc.Verify(ctx, common.verifyOptions(*output))
		return exitCode(err, stderr)
	case "coverage":
		fs := newFlagSet("coverage", stderr)
		common := commonFlags(fs)
		output := outputFlags(fs)
		groupBy := fs.String("group-by", string(domain.GroupApplication), "Grouping: APPLICATION|PACKAGE|CLASS")
		unit := fs.String("unit", string(domain.UnitLine), "Coverage unit: LINE|INSTRUCTION|BRANCH")
		aggregation := fs.String("aggregation", string(domain.CoveredPercentage),
			"Aggregation: COVERED_PERCENTAGE|MISSED_PERCENTAGE|COVERED_COUNT|MISSED_COUNT")
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		opts, err := coverageOptions(common, *groupBy, *unit, *aggregation)
		if err != nil {
			return exitCode(err, stderr)
		}
		values, err := svc.Coverage(ctx, opts)
		if err != nil {
			return exitCode(err, stderr)
		}
		return exitCode(report.WriteCoverage(stdout, values, *output), stderr)
	case "report":
		fs := newFlagSet("report", stderr)
		common := commonFlags(fs)
		var sources stringList
		fs.Var(&sources, "sources", "Source root (repeatable)")
		xmlFile := fs.String("xml", "", "XML report output file")
		htmlDir := fs.String("html", "", "HTML report output directory")
		title := fs.String("title", application.DefaultReportTitle, "Report title")
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		err := svc.Report(ctx, application.ReportOptions{
			ConfigPath: common.configPath,
			Reports:    common.reports,
			ClassDirs:  common.classDirs,
			SourceDirs: sources,
			XMLFile:    *xmlFile,
			HTMLDir:    *htmlDir,
			Title:      *title,
		})
		return exitCode(err, stderr)
	case "merge":
		fs := newFlagSet("merge", stderr)
		target := fs.String("target", "", "Merged report output file")
		var reports stringList
		fs.Var(&reports, "report", "Coverage report to merge (repeatable)")
		logLevelFlag(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		reports = append(reports, fs.Args()...)
		err := svc.Merge(ctx, application.MergeOptions{Target: *target, Reports: reports})
		return exitCode(err, stderr)
	case "instrument":
		fs := newFlagSet("instrument", stderr)
		configPath := fs.String("config", config.DefaultPath, "Config file path")
		var classDirs stringList
		fs.Var(&classDirs, "classes", "Compiled class directory (repeatable)")
		dest := fs.String("dest", "", "Output directory for instrumented classes")
		hits := fs.Bool("hits", false, "Count hits instead of recording a flag")
		logLevelFlag(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		err := svc.Instrument(ctx, application.InstrumentOptions{
			ConfigPath: *configPath,
			OutputDir:  *dest,
			ClassDirs:  classDirs,
			CountHits:  *hits,
		})
		return exitCode(err, stderr)
	case "badge":
		fs := newFlagSet("badge", stderr)
		common := commonFlags(fs)
		out := fs.String("out", "coverage.svg", "Output file path, - for stdout")
		label := fs.String("label", badge.DefaultLabel, "Badge label text")
		style := fs.String("style", string(badge.StyleFlat), "Badge style: flat|flat-square")
		minimum := fs.Float64("min", -1, "Colour the badge against this minimum percentage")
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		result, err := svc.Badge(ctx, application.BadgeOptions{
			ConfigPath: common.configPath,
			Reports:    common.reports,
			ClassDirs:  common.classDirs,
			TempDir:    common.tempDir,
		})
		if err != nil {
			return exitCode(err, stderr)
		}
		opts := badge.Options{Label: *label, Percent: result.Percent, Style: badge.Style(*style)}
		if *minimum >= 0 {
			opts.Minimum = minimum
		}
		if err := writeBadge(*out, stdout, opts); err != nil {
			return exitCode(err, stderr)
		}
		if *out != "-" {
			fmt.Fprintf(stdout, "Badge written to %s (%.1f%%)\n", *out, result.Percent)
		}
		return exitOK
	case "init":
		fs := newFlagSet("init", stderr)
		configPath := fs.String("config", config.DefaultPath, "Config file path")
		force := fs.Bool("force", false, "Overwrite existing config file")
		noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
		logLevelFlag(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		cfg, err := svc.Detect(ctx, application.DetectOptions{ConfigPath: *configPath})
		if err != nil {
			return exitCode(err, stderr)
		}
		if len(cfg.Rules) == 0 {
			cfg.Rules = wizard.StarterRules()
		}
		if !*noInteractive {
			var confirmed bool
			cfg, confirmed, err = initWizard(cfg, stdout, stdin)
			if err != nil {
				return exitCode(err, stderr)
			}
			if !confirmed {
				fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
				return exitOK
			}
		}
		if err := writeConfigFile(*configPath, cfg, stdout, *force); err != nil {
			return exitCode(fmt.Errorf("%w: %w", domain.ErrConfig, err), stderr)
		}
		return exitOK
	case "watch":
		fs := newFlagSet("watch", stderr)
		common := commonFlags(fs)
		output := outputFlags(fs)
		debounce := fs.Duration("debounce", time.Second, "Wait this long after the last change before verifying")
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		return runWatch(ctx, stdout, stderr, svc, common.verifyOptions(*output), *debounce)
	case "mcp":
		fs := newFlagSet("mcp", stderr)
		configPath := fs.String("config", config.DefaultPath, "Config file path")
		tempDir := fs.String("temp-dir", "", "Scratch directory for engine files")
		logLevelFlag(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return exitUsage
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := serveMCP(ctx, svc, covermcp.Config{ConfigPath: *configPath, TempDir: *tempDir})
		if err != nil && ctx.Err() != nil {
			return exitOK
		}
		return exitCode(err, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "covergate %s (%s, %s)\n", Version, Commit, Date)
		return exitOK
	default:
		usage(stderr)
		return exitUsage
	}
}

// BuildService wires the production adapters. The kover CLI location can be
// set with COVERGATE_KOVER_CLI or per project in the config file.
func BuildService(out io.Writer, logger *slog.Logger) *application.Service {
	engine := jacoco.New(logger)
	external := kovercli.New(os.Getenv("COVERGATE_KOVER_CLI"), "", logger)
	return &application.Service{
		ConfigLoader: config.Loader{},
		Autodetector: autodetect.Detector{},
		Engine:       engine,
		Reports:      engine,
		HTMLReports:  external,
		Merger:       engine,
		Instrumenter: external,
		Locker:       scratch.Locker{Logger: logger},
		Reporter:     report.Writer{},
		Logger:       logger,
		Out:          out,
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// commonOptions are the inputs shared by every verifying command.
type commonOptions struct {
	configPath string
	reports    stringList
	classDirs  stringList
	tempDir    string
}

func commonFlags(fs *flag.FlagSet) *commonOptions {
	opts := &commonOptions{}
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "Config file path")
	fs.Var(&opts.reports, "report", "Coverage report (repeatable, overrides config)")
	fs.Var(&opts.classDirs, "classes", "Compiled class directory (repeatable, overrides config)")
	fs.StringVar(&opts.tempDir, "temp-dir", "", "Scratch directory for engine files")
	logLevelFlag(fs)
	return opts
}

func (c *commonOptions) verifyOptions(output application.OutputFormat) application.VerifyOptions {
	return application.VerifyOptions{
		ConfigPath: c.configPath,
		Reports:    c.reports,
		ClassDirs:  c.classDirs,
		TempDir:    c.tempDir,
		Output:     output,
	}
}

func coverageOptions(common *commonOptions, groupBy, unit, aggregation string) (application.CoverageOptions, error) {
	g, err := domain.ParseGroupingBy(groupBy)
	if err != nil {
		return application.CoverageOptions{}, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	u, err := domain.ParseCoverageUnit(unit)
	if err != nil {
		return application.CoverageOptions{}, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	a, err := domain.ParseAggregationType(aggregation)
	if err != nil {
		return application.CoverageOptions{}, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	return application.CoverageOptions{
		ConfigPath:  common.configPath,
		GroupBy:     g,
		Unit:        u,
		Aggregation: a,
		Reports:     common.reports,
		ClassDirs:   common.classDirs,
		TempDir:     common.tempDir,
	}, nil
}

func outputFlags(fs *flag.FlagSet) *application.OutputFormat {
	output := application.OutputText
	fs.Var((*outputValue)(&output), "output", "Output format: text|json|brief")
	fs.Var((*outputValue)(&output), "o", "Output format: text|json|brief")
	return &output
}

type outputValue application.OutputFormat

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Set(value string) error {
	switch value {
	case string(application.OutputText), string(application.OutputJSON), string(application.OutputBrief):
		*o = outputValue(value)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", value)
	}
}

// stringList implements flag.Value for repeatable flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	// #nosec G304 -- path is provided by the user on the command line
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return config.Write(file, cfg)
}

func writeBadge(path string, stdout io.Writer, opts badge.Options) error {
	if path == "-" {
		return badge.Generate(stdout, opts)
	}
	// #nosec G304 -- path is provided by the user on the command line
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return badge.Generate(file, opts)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `covergate <command>

Commands:
  verify      Verify coverage reports against the configured rules
  coverage    Print one coverage metric per application, package or class
  report      Generate XML and/or HTML reports
  merge       Merge several coverage reports into one
  instrument  Instrument compiled classes offline (needs kover-cli)
  badge       Generate an SVG coverage badge
  init        Write a starter .covergate.yaml with the interactive wizard
  watch       Re-run verification whenever coverage reports change
  mcp         Serve verify and coverage to agents over MCP (stdio)
  version     Print version information`)
}

// exitCode prints err and maps it to the process exit code.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, err)
	switch {
	case errors.Is(err, domain.ErrViolations):
		return exitViolations
	case errors.Is(err, domain.ErrConfig),
		errors.Is(err, domain.ErrPattern),
		errors.Is(err, application.ErrConfigNotFound):
		return exitUsage
	default:
		return exitRuntime
	}
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, opts application.VerifyOptions, debounce time.Duration) int {
	w, err := watcher.New(
		watcher.WithDebounce(debounce),
		watcher.WithIgnoredNames(application.AggregatedICFile, application.AggregatedSMapFile, scratch.LockFile),
	)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return exitRuntime
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(stdout, "Watching coverage reports... (Ctrl+C to stop)")

	writer := report.Writer{}
	callback := func(runNumber int, violations []domain.RuleViolations, runErr error) {
		fmt.Fprintf(stdout, "\n--- Run #%d at %s ---\n", runNumber, time.Now().Format("15:04:05"))
		if runErr != nil {
			fmt.Fprintf(stderr, "Verification failed: %v\n", runErr)
			return
		}
		if err := writer.Write(stdout, violations, opts.Output); err != nil {
			fmt.Fprintf(stderr, "failed to write result: %v\n", err)
		}
	}

	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stdout, "\nStopping watch mode...")
			return exitOK
		}
		return exitCode(err, stderr)
	}
	return exitOK
}
