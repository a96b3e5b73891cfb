// Package kovercli drives the Kover command line tool for the operations
// that need bytecode access: offline instrumentation and HTML reports.
package kovercli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/covergate/internal/application"
	"github.com/felixgeelhaar/covergate/internal/domain"
)

// ErrNoJar is returned when no kover-cli jar is configured.
var ErrNoJar = errors.New("kover-cli jar is not configured")

// CLI implements application.ReportGenerator and application.Instrumenter by
// running `java -jar kover-cli.jar`.
type CLI struct {
	Jar    string
	Java   string
	Logger *slog.Logger
	// Exec overrides command execution (for testing).
	Exec func(ctx context.Context, cmd string, args []string) error
}

// New creates a CLI adapter. java defaults to "java".
func New(jar, java string, logger *slog.Logger) *CLI {
	return &CLI{Jar: jar, Java: java, Logger: logger}
}

// Instrument runs `instrument` for every original class directory.
func (c *CLI) Instrument(ctx context.Context, req application.InstrumentRequest) error {
	args := append([]string{}, req.OriginalDirs...)
	args = append(args, "--dest", req.OutputDir)
	if req.CountHits {
		args = append(args, "--hits")
	}
	args = append(args, filterArgs(req.Scope.Filters())...)
	return c.run(ctx, req.Engine, "instrument", args)
}

// GenerateXML runs `report --xml`.
func (c *CLI) GenerateXML(ctx context.Context, req application.XMLReportRequest) error {
	args := reportArgs(req.BinaryReports, req.ClassFileDirs, req.SourceDirs, req.Title, req.Scope)
	args = append(args, "--xml", req.XMLFile)
	return c.run(ctx, req.Engine, "report", args)
}

// GenerateHTML runs `report --html`.
func (c *CLI) GenerateHTML(ctx context.Context, req application.HTMLReportRequest) error {
	args := reportArgs(req.BinaryReports, req.ClassFileDirs, req.SourceDirs, req.Title, req.Scope)
	args = append(args, "--html", req.HTMLDir)
	return c.run(ctx, req.Engine, "report", args)
}

func reportArgs(reports, classDirs, sourceDirs []string, title string, scope domain.ClassScope) []string {
	args := append([]string{}, reports...)
	for _, dir := range classDirs {
		args = append(args, "--classfiles", dir)
	}
	for _, dir := range sourceDirs {
		args = append(args, "--src", dir)
	}
	if title != "" {
		args = append(args, "--title", title)
	}
	return append(args, filterArgs(scope.Filters())...)
}

// filterArgs hands the original templates to the tool, which applies its
// own wildcard matching.
func filterArgs(filters domain.ClassFilters) []string {
	var args []string
	for _, include := range filters.Includes {
		args = append(args, "--include", include)
	}
	for _, exclude := range filters.Excludes {
		args = append(args, "--exclude", exclude)
	}
	for _, annotation := range filters.ExcludeAnnotations {
		args = append(args, "--excludeAnnotation", annotation)
	}
	return args
}

// run executes one tool command. Locations configured per request take
// precedence over the adapter's defaults.
func (c *CLI) run(ctx context.Context, engine application.EngineConfig, command string, args []string) error {
	jar := firstNonEmpty(engine.KoverCLI, c.Jar)
	if jar == "" {
		return ErrNoJar
	}
	java := firstNonEmpty(engine.Java, c.Java, "java")
	full := append([]string{"-jar", jar, command}, args...)

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "running kover cli",
		slog.String("command", command),
		slog.String("args", strings.Join(args, " ")))

	execFn := c.Exec
	if execFn == nil {
		execFn = runCommand
	}
	if err := execFn(ctx, java, full); err != nil {
		return fmt.Errorf("kover-cli %s failed: %w", command, err)
	}
	return nil
}

// runCommand executes the tool, forwarding its output to stderr so the
// caller's stdout stays machine readable.
func runCommand(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
