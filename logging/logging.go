// logging/logging.go
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gewnthar/advsync/config"
)

// Setup routes the standard logger to stdout plus an append-only, rotated log
// file. If the log directory cannot be created or the file cannot be opened,
// logging degrades to stdout alone instead of failing the run. The returned
// closer is nil in the degraded case.
func Setup(cfg config.LogConfig) io.Closer {
	log.SetOutput(os.Stdout)

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		log.Printf("WARN Logging: cannot create log directory %s: %v; logging to stdout only", cfg.Dir, err)
		return nil
	}

	path := filepath.Join(cfg.Dir, cfg.File)

	// Probe writability up front so a permission problem surfaces as one
	// warning instead of a failed run.
	probe, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("WARN Logging: cannot open log file %s: %v; logging to stdout only", path, err)
		return nil
	}
	probe.Close()

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, lj))
	return lj
}
