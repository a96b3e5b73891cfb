package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// DefaultReportTitle is used when no title is given.
const DefaultReportTitle = "Coverage Report"

// ErrNoReportFormat is returned when neither an XML file nor an HTML
// directory is requested.
var ErrNoReportFormat = errors.New("at least one report format is required")

// ReportHandler handles report generation, merging and instrumentation.
type ReportHandler struct {
	ConfigLoader ConfigLoader
	Reports      ReportGenerator
	HTMLReports  ReportGenerator
	Merger       ReportMerger
	Instrumenter Instrumenter
	Logger       *slog.Logger
}

// Report writes the requested reports. Every format is attempted and all
// failures are returned together.
func (h *ReportHandler) Report(ctx context.Context, opts ReportOptions) error {
	if opts.XMLFile == "" && opts.HTMLDir == "" {
		return fmt.Errorf("%w: %w", domain.ErrConfig, ErrNoReportFormat)
	}
	cfg, err := loadConfig(h.ConfigLoader, opts.ConfigPath, true)
	if err != nil {
		return err
	}
	scope, err := domain.NewClassScope(cfg.Filters)
	if err != nil {
		return err
	}
	reports := override(opts.Reports, cfg.Reports)
	if err := requireReports(reports); err != nil {
		return err
	}
	title := overrideString(opts.Title, "", DefaultReportTitle)
	classDirs := override(opts.ClassDirs, cfg.ClassDirs)
	sourceDirs := override(opts.SourceDirs, cfg.SourceDirs)
	logger := loggerOrDefault(h.Logger)

	var result *multierror.Error
	if opts.XMLFile != "" {
		err := generate(h.Reports, "xml", func(g ReportGenerator) error {
			return g.GenerateXML(ctx, XMLReportRequest{
				XMLFile:       opts.XMLFile,
				Title:         title,
				BinaryReports: reports,
				ClassFileDirs: classDirs,
				SourceDirs:    sourceDirs,
				Scope:         scope,
				Engine:        cfg.Engine,
			})
		})
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			logger.InfoContext(ctx, "xml report written", slog.String("file", opts.XMLFile))
		}
	}
	if opts.HTMLDir != "" {
		generator := h.HTMLReports
		if generator == nil {
			generator = h.Reports
		}
		err := generate(generator, "html", func(g ReportGenerator) error {
			return g.GenerateHTML(ctx, HTMLReportRequest{
				HTMLDir:       opts.HTMLDir,
				Title:         title,
				Charset:       "UTF-8",
				BinaryReports: reports,
				ClassFileDirs: classDirs,
				SourceDirs:    sourceDirs,
				Scope:         scope,
				Engine:        cfg.Engine,
			})
		})
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			logger.InfoContext(ctx, "html report written", slog.String("dir", opts.HTMLDir))
		}
	}
	return result.ErrorOrNil()
}

func generate(g ReportGenerator, format string, fn func(ReportGenerator) error) error {
	if g == nil {
		return fmt.Errorf("%s report: no generator configured", format)
	}
	if err := fn(g); err != nil {
		return &domain.EngineError{Op: format + " report", Err: err}
	}
	return nil
}

// Merge combines binary reports into target.
func (h *ReportHandler) Merge(ctx context.Context, opts MergeOptions) error {
	if opts.Target == "" {
		return fmt.Errorf("%w: merge target is required", domain.ErrConfig)
	}
	if err := requireReports(opts.Reports); err != nil {
		return err
	}
	if h.Merger == nil {
		return errors.New("no report merger configured")
	}
	if err := h.Merger.Merge(ctx, opts.Target, opts.Reports); err != nil {
		return &domain.EngineError{Op: "merge", Err: err}
	}
	loggerOrDefault(h.Logger).InfoContext(ctx, "reports merged",
		slog.String("target", opts.Target),
		slog.Int("reports", len(opts.Reports)))
	return nil
}

// Instrument rewrites the configured class directories into OutputDir.
func (h *ReportHandler) Instrument(ctx context.Context, opts InstrumentOptions) error {
	if opts.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", domain.ErrConfig)
	}
	cfg, err := loadConfig(h.ConfigLoader, opts.ConfigPath, true)
	if err != nil {
		return err
	}
	classDirs := override(opts.ClassDirs, cfg.ClassDirs)
	if len(classDirs) == 0 {
		return fmt.Errorf("%w: no class directories given", domain.ErrConfig)
	}
	for _, dir := range classDirs {
		if filepath.Clean(dir) == filepath.Clean(opts.OutputDir) {
			return fmt.Errorf("%w: output directory %s overlaps class directory", domain.ErrConfig, dir)
		}
	}
	scope, err := domain.NewClassScope(cfg.Filters)
	if err != nil {
		return err
	}
	if h.Instrumenter == nil {
		return errors.New("no instrumenter configured")
	}
	err = h.Instrumenter.Instrument(ctx, InstrumentRequest{
		OutputDir:    opts.OutputDir,
		OriginalDirs: classDirs,
		Scope:        scope,
		CountHits:    opts.CountHits,
		Engine:       cfg.Engine,
	})
	if err != nil {
		return &domain.EngineError{Op: "instrument", Err: err}
	}
	return nil
}
