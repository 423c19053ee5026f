package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "slot_machine_data", cfg.Store.FilePrefix)
				assert.Equal(t, "shift_jis", cfg.Store.Encoding)
				assert.True(t, cfg.Store.CreateDir)
				assert.Equal(t, "合成確率", cfg.Workbook.SheetName)
				assert.Equal(t, 125.0, cfg.Workbook.LowThreshold)
				assert.Equal(t, 140.0, cfg.Workbook.MidThreshold)
				assert.False(t, cfg.Upload.Enabled)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"SLOT_SERVER_PORT":     "9090",
				"SLOT_STORE_DIR":       "snapshots",
				"SLOT_STORE_ENCODING":  "utf-8",
				"SLOT_WORKBOOK_FILE":   "agg.xlsx",
				"SLOT_SCRAPER_TIMEOUT": "5s",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "snapshots", cfg.Store.Dir)
				assert.Equal(t, "utf-8", cfg.Store.Encoding)
				assert.Equal(t, "agg.xlsx", cfg.Workbook.Path)
				assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
			},
		},
		{
			name: "yaml file then env",
			file: "store:\n  dir: from-file\n  file_prefix: juggler\nlogging:\n  level: debug\n",
			env: map[string]string{
				"SLOT_LOGGING_LEVEL": "warn",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-file", cfg.Store.Dir)
				assert.Equal(t, "juggler", cfg.Store.FilePrefix)
				assert.Equal(t, "csv", cfg.Store.Extension)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"SLOT_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "inverted thresholds",
			env:     map[string]string{"SLOT_WORKBOOK_MID_THRESHOLD": "100"},
			wantErr: true,
		},
		{
			name: "drive upload without credentials",
			env: map[string]string{
				"SLOT_UPLOAD_ENABLED":  "true",
				"SLOT_UPLOAD_PROVIDER": "drive",
			},
			wantErr: true,
		},
		{
			name: "directory upload without directory",
			env: map[string]string{
				"SLOT_UPLOAD_ENABLED": "true",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
				t.Setenv(ConfigFileEnv, path)
			} else {
				t.Setenv(ConfigFileEnv, "")
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	base := t.TempDir()

	paths, err := cfg.ResolvePaths(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "マイジャグラーV"), paths.StoreDir)
	assert.Equal(t, filepath.Join(base, "マイジャグラーV_塗りつぶし済み.xlsx"), paths.WorkbookPath)

	abs := filepath.Join(base, "abs", "book.xlsx")
	cfg.Workbook.Path = abs
	paths, err = cfg.ResolvePaths(base)
	require.NoError(t, err)
	assert.Equal(t, abs, paths.WorkbookPath)
}

func TestPaths_Apply(t *testing.T) {
	cfg := Default()
	cfg.Logging.FilePath = "logs/slotledger.log"
	base := t.TempDir()

	paths, err := cfg.ResolvePaths(base)
	require.NoError(t, err)
	paths.Apply(cfg)

	assert.Equal(t, filepath.Join(base, "マイジャグラーV"), cfg.Store.Dir)
	assert.Equal(t, filepath.Join(base, "logs", "slotledger.log"), cfg.Logging.FilePath)
	assert.True(t, filepath.IsAbs(cfg.Workbook.Path))
}
