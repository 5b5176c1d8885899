// Package logging configures the pipeline's slog-based logging: a console
// handler plus an optional run log file, fanned out through a TeeHandler.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a run log file path using OS-appropriate separators.
func LogFilePath(logsDir string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("video360.%s.log", runStart.Format("20060102_150405")),
	)
}
