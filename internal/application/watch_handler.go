package application

import (
	"context"
	"fmt"
	"path/filepath"
)

// WatchHandler re-runs verification when coverage reports change.
type WatchHandler struct {
	Verify *VerifyHandler
}

// Watch verifies once, then again after every batch of report changes, until
// ctx is cancelled or the watcher closes.
func (h *WatchHandler) Watch(ctx context.Context, opts VerifyOptions, watcher FileWatcher, callback WatchCallback) error {
	cfg, err := loadConfig(h.Verify.ConfigLoader, opts.ConfigPath, false)
	if err != nil {
		return err
	}
	dirs := watchDirs(override(opts.Reports, cfg.Reports))
	if len(dirs) == 0 {
		return fmt.Errorf("no coverage reports to watch")
	}
	for _, dir := range dirs {
		if err := watcher.WatchDir(dir); err != nil {
			return fmt.Errorf("failed to watch directory: %w", err)
		}
	}

	runNumber := 1
	violations, runErr := h.Verify.VerifyResult(ctx, opts)
	if callback != nil {
		callback(runNumber, violations, runErr)
	}

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runNumber++
			violations, runErr := h.Verify.VerifyResult(ctx, opts)
			if callback != nil {
				callback(runNumber, violations, runErr)
			}
		}
	}
}

// watchDirs returns the distinct parent directories of reports.
func watchDirs(reports []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, report := range reports {
		dir := filepath.Dir(report)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}
