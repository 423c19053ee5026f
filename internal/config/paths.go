package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved locations used by one run.
type Paths struct {
	BaseDir      string
	StoreDir     string
	WorkbookPath string
	LogFile      string
}

// ResolvePaths anchors every relative configured path at baseDir. An empty
// baseDir means the current working directory.
func (c *Config) ResolvePaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	paths := &Paths{
		BaseDir:      baseDir,
		StoreDir:     resolve(baseDir, c.Store.Dir),
		WorkbookPath: resolve(baseDir, c.Workbook.Path),
		LogFile:      resolve(baseDir, c.Logging.FilePath),
	}
	return paths, nil
}

// Apply writes the resolved locations back into c.
func (p *Paths) Apply(c *Config) {
	c.Store.Dir = p.StoreDir
	c.Workbook.Path = p.WorkbookPath
	c.Logging.FilePath = p.LogFile
}

// LogPathResolution logs the resolved paths at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("store_dir", p.StoreDir),
		slog.String("workbook_path", p.WorkbookPath),
		slog.String("log_file", p.LogFile))
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
