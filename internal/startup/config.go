package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"visionvault/internal/captioner"
	"visionvault/internal/library"
	"visionvault/internal/logging"
	"visionvault/internal/tagstore"
	"visionvault/internal/workers"
)

// EnvPrefix prefixes every environment variable. The unprefixed names used
// by earlier releases (MEDIA_DIR, PORT, ...) are still honoured.
const EnvPrefix = "VISIONVAULT"

// Config holds all application configuration
type Config struct {
	MediaDir        string        `mapstructure:"media_dir" validate:"required"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	MetricsPort     string        `mapstructure:"metrics_port" validate:"required,numeric"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	SweepOnStart    bool          `mapstructure:"sweep_on_start"`
	SweepWorkers    int           `mapstructure:"sweep_workers" validate:"gte=0"`
	Watch           bool          `mapstructure:"watch"`
	LogLevel        string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogStaticFiles  bool          `mapstructure:"log_static_files"`
	LogHealthChecks bool          `mapstructure:"log_health_checks"`
	UploadMaxBytes  int64         `mapstructure:"upload_max_bytes" validate:"gt=0"`

	Captioner CaptionerConfig `mapstructure:"captioner"`
	Store     StoreConfig     `mapstructure:"store"`
}

// CaptionerConfig configures the captioning service client. An empty
// endpoint disables captioning.
type CaptionerConfig struct {
	Endpoint     string        `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxDimension int           `mapstructure:"max_dimension" validate:"gte=64"`
}

// StoreConfig names the hidden store files.
type StoreConfig struct {
	DirFile   string `mapstructure:"dir_file" validate:"required,startswith=.,excludesall=/\\"`
	RootFile  string `mapstructure:"root_file" validate:"required,startswith=.,excludesall=/\\,nefield=DirFile"`
	CacheSize int    `mapstructure:"cache_size" validate:"gte=0"`
}

// TagStoreOptions converts the store settings.
func (c *Config) TagStoreOptions() tagstore.Options {
	return tagstore.Options{
		DirFileName:  c.Store.DirFile,
		RootFileName: c.Store.RootFile,
		CacheSize:    c.Store.CacheSize,
	}
}

// CaptionerClientConfig converts the captioner settings.
func (c *Config) CaptionerClientConfig() captioner.Config {
	return captioner.Config{
		Endpoint:     c.Captioner.Endpoint,
		APIKey:       c.Captioner.APIKey,
		Model:        c.Captioner.Model,
		Timeout:      c.Captioner.Timeout,
		MaxDimension: c.Captioner.MaxDimension,
	}
}

// defaults lists every key with its default. Registering each key is also
// what lets viper resolve it from the environment.
var defaults = map[string]interface{}{
	"media_dir":               "/media",
	"port":                    "8080",
	"metrics_port":            "9090",
	"metrics_enabled":         true,
	"sweep_interval":          "30m",
	"poll_interval":           "30s",
	"sweep_on_start":          true,
	"sweep_workers":           0,
	"watch":                   true,
	"log_level":               "",
	"log_static_files":        false,
	"log_health_checks":       true,
	"upload_max_bytes":        library.DefaultUploadMaxBytes,
	"captioner.endpoint":      "",
	"captioner.api_key":       "",
	"captioner.model":         "",
	"captioner.timeout":       captioner.DefaultTimeout.String(),
	"captioner.max_dimension": captioner.DefaultMaxDimension,
	"store.dir_file":          tagstore.DefaultDirFileName,
	"store.root_file":         tagstore.DefaultRootFileName,
	"store.cache_size":        tagstore.DefaultCacheSize,
}

// legacyEnv maps keys to the unprefixed variable names of earlier releases.
var legacyEnv = map[string]string{
	"media_dir":         "MEDIA_DIR",
	"port":              "PORT",
	"metrics_port":      "METRICS_PORT",
	"metrics_enabled":   "METRICS_ENABLED",
	"sweep_interval":    "INDEX_INTERVAL",
	"poll_interval":     "POLL_INTERVAL",
	"sweep_workers":     "SWEEP_WORKERS",
	"log_level":         "LOG_LEVEL",
	"log_static_files":  "LOG_STATIC_FILES",
	"log_health_checks": "LOG_HEALTH_CHECKS",
}

var validate = validator.New()

// Load reads configuration from the environment and, when configPath is not
// empty, a YAML or TOML file. Environment variables win over the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	abs, err := filepath.Abs(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	cfg.MediaDir = abs
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return err
	}
	return nil
}

// LoadConfig loads the configuration, prepares the media directory and logs
// everything it resolved. The media directory must be writable since every
// directory stores its tags inside itself.
func LoadConfig(configPath string) (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		level, _ := logging.ParseLevel(cfg.LogLevel)
		logging.SetLevel(level)
	}
	workers.SetOverride(cfg.SweepWorkers)

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if configPath != "" {
		logging.Info("  Config file:         %s", configPath)
	}
	logging.Info("  MEDIA_DIR:           %s", cfg.MediaDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_PORT:        %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  SWEEP_INTERVAL:      %v", cfg.SweepInterval)
	logging.Info("  POLL_INTERVAL:       %v", cfg.PollInterval)
	logging.Info("  SWEEP_ON_START:      %v", cfg.SweepOnStart)
	logging.Info("  SWEEP_WORKERS:       %d", workers.ForIO(0))
	logging.Info("  WATCH:               %v", cfg.Watch)
	logging.Info("  UPLOAD_MAX_BYTES:    %d", cfg.UploadMaxBytes)
	logging.Info("  STORE FILES:         %s, %s (cache %d)", cfg.Store.DirFile, cfg.Store.RootFile, cfg.Store.CacheSize)
	logging.Info("  LOG_STATIC_FILES:    %v", cfg.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if cfg.Captioner.Endpoint != "" {
		logging.Info("  CAPTIONER:           %s (model %q, timeout %v, api key %s)",
			cfg.Captioner.Endpoint, cfg.Captioner.Model, cfg.Captioner.Timeout, maskSecret(cfg.Captioner.APIKey))
	} else {
		logging.Info("  CAPTIONER:           DISABLED")
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Media directory (absolute): %s", cfg.MediaDir)

	if err := ensureDirectory(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}
	if err := testWriteAccess(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("media directory is not writable (required for tag stores): %w", err)
	}
	logging.Info("  [OK] Media directory is writable")

	return cfg, nil
}

func maskSecret(s string) string {
	if s == "" {
		return "(none)"
	}
	return "(set)"
}

func ensureDirectory(path string) error {
	logging.Debug("  Checking media directory: %s", path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			files, dirs := 0, 0
			for _, e := range entries {
				if e.IsDir() {
					dirs++
				} else {
					files++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", files, dirs)
		}
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
