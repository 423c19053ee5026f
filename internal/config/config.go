package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SLOT"

// ConfigFileEnv names the environment variable holding an optional YAML file.
const ConfigFileEnv = "SLOT_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Workbook WorkbookConfig `yaml:"workbook" envconfig:"WORKBOOK"`
	Upload   UploadConfig   `yaml:"upload" envconfig:"UPLOAD"`
	Scraper  ScraperConfig  `yaml:"scraper" envconfig:"SCRAPER"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format    string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=json text"`
	Output    string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath  string `yaml:"file_path" envconfig:"FILE_PATH"`
	AddSource bool   `yaml:"add_source" envconfig:"ADD_SOURCE"`
}

// StoreConfig describes the snapshot directory and its file naming.
type StoreConfig struct {
	Dir        string `yaml:"dir" envconfig:"DIR" validate:"required"`
	FilePrefix string `yaml:"file_prefix" envconfig:"FILE_PREFIX" validate:"required,excludesall=/\\"`
	Extension  string `yaml:"extension" envconfig:"EXTENSION" validate:"required,alphanum"`
	// Encoding is an IANA/WHATWG encoding name shared by writes and reads.
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"required"`
	// CreateDir lets the orchestrator create Dir before the first write.
	CreateDir bool `yaml:"create_dir" envconfig:"CREATE_DIR"`
}

// WorkbookConfig describes the aggregate spreadsheet.
type WorkbookConfig struct {
	Path           string  `yaml:"path" envconfig:"FILE" validate:"required"`
	SheetName      string  `yaml:"sheet_name" envconfig:"SHEET_NAME" validate:"required,max=31"`
	Font           string  `yaml:"font" envconfig:"FONT"`
	RowHeight      float64 `yaml:"row_height" envconfig:"ROW_HEIGHT" validate:"gt=0"`
	MinColumnWidth float64 `yaml:"min_column_width" envconfig:"MIN_COLUMN_WIDTH" validate:"gt=0"`
	LowThreshold   float64 `yaml:"low_threshold" envconfig:"LOW_THRESHOLD"`
	MidThreshold   float64 `yaml:"mid_threshold" envconfig:"MID_THRESHOLD" validate:"gtfield=LowThreshold"`
	LowColor       string  `yaml:"low_color" envconfig:"LOW_COLOR" validate:"hexadecimal,len=6"`
	MidColor       string  `yaml:"mid_color" envconfig:"MID_COLOR" validate:"hexadecimal,len=6"`
}

// UploadConfig configures the optional remote copy of both artifacts.
type UploadConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// Provider is "drive" (Google Drive folder) or "directory" (local mirror).
	Provider        string `yaml:"provider" envconfig:"PROVIDER" validate:"oneof=drive directory"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" validate:"required_if=Provider drive Enabled true"`
	FolderID        string `yaml:"folder_id" envconfig:"FOLDER_ID"`
	Directory       string `yaml:"directory" envconfig:"DIRECTORY"`
	SnapshotPrefix  string `yaml:"snapshot_prefix" envconfig:"SNAPSHOT_PREFIX"`
	WorkbookPrefix  string `yaml:"workbook_prefix" envconfig:"WORKBOOK_PREFIX"`
}

// ScraperConfig configures rendering of remote markup sources.
type ScraperConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	WaitSelector string        `yaml:"wait_selector" envconfig:"WAIT_SELECTOR"`
	UserAgent    string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Headless     bool          `yaml:"headless" envconfig:"HEADLESS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  10 << 20,
			RateLimitRPS:    1,
			RateLimitBurst:  5,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/slotledger.log",
		},
		Store: StoreConfig{
			Dir:        "マイジャグラーV",
			FilePrefix: "slot_machine_data",
			Extension:  "csv",
			Encoding:   "shift_jis",
			CreateDir:  true,
		},
		Workbook: WorkbookConfig{
			Path:           "マイジャグラーV_塗りつぶし済み.xlsx",
			SheetName:      "合成確率",
			Font:           "メイリオ",
			RowHeight:      20,
			MinColumnWidth: 10,
			LowThreshold:   125,
			MidThreshold:   140,
			LowColor:       "FFFF00",
			MidColor:       "ADD8E6",
		},
		Upload: UploadConfig{
			Provider:       "directory",
			SnapshotPrefix: "data/csv",
			WorkbookPrefix: "data/excel",
		},
		Scraper: ScraperConfig{
			Timeout:      60 * time.Second,
			WaitSelector: "table",
			Headless:     true,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by SLOT_CONFIG_FILE, then SLOT_* environment variables. Later
// sources win.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit YAML file; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Upload.Enabled && c.Upload.Provider == "directory" && strings.TrimSpace(c.Upload.Directory) == "" {
		return fmt.Errorf("upload.directory is required for the directory provider")
	}
	return nil
}
