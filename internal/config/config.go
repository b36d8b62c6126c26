package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "EVENTD"

	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "UTC"
	defaultDatabase      = "~/.local/share/eventd/eventd.db"
	defaultMaxWindowDays = 366
	defaultPageSize      = 10
	defaultLeadMinutes   = 15
	defaultRefresh       = "*/5 * * * *"
	defaultHorizonHours  = 24
	defaultBuffer        = 64
)

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type RemindersConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	LeadMinutes  int    `yaml:"lead_minutes" mapstructure:"lead_minutes"`
	Refresh      string `yaml:"refresh" mapstructure:"refresh"`
	HorizonHours int    `yaml:"horizon_hours" mapstructure:"horizon_hours"`
	Buffer       int    `yaml:"buffer" mapstructure:"buffer"`
}

// BasicAuthConfig enables HTTP basic auth on the API when both fields are set.
type BasicAuthConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

type Config struct {
	// Database is the SQLite file path; a leading ~/ is expanded.
	Database string `yaml:"database" mapstructure:"database"`
	// Timezone is the IANA zone used for window dates and display.
	Timezone      string           `yaml:"timezone" mapstructure:"timezone"`
	Listen        string           `yaml:"listen" mapstructure:"listen"`
	MaxWindowDays int              `yaml:"max_window_days" mapstructure:"max_window_days"`
	PageSize      int              `yaml:"page_size" mapstructure:"page_size"`
	Logging       LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Reminders     RemindersConfig  `yaml:"reminders" mapstructure:"reminders"`
	BasicAuth     *BasicAuthConfig `yaml:"basic_auth,omitempty" mapstructure:"basic_auth"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:      defaultDatabase,
		Timezone:      defaultTimezone,
		Listen:        defaultListen,
		MaxWindowDays: defaultMaxWindowDays,
		PageSize:      defaultPageSize,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Reminders: RemindersConfig{
			Enabled:      true,
			LeadMinutes:  defaultLeadMinutes,
			Refresh:      defaultRefresh,
			HorizonHours: defaultHorizonHours,
			Buffer:       defaultBuffer,
		},
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = defaultMaxWindowDays
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Reminders.LeadMinutes < 0 {
		c.Reminders.LeadMinutes = defaultLeadMinutes
	}
	if c.Reminders.Refresh == "" {
		c.Reminders.Refresh = defaultRefresh
	}
	if c.Reminders.HorizonHours <= 0 {
		c.Reminders.HorizonHours = defaultHorizonHours
	}
	if c.Reminders.Buffer <= 0 {
		c.Reminders.Buffer = defaultBuffer
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) DatabasePath() (string, error) {
	return ExpandPath(c.Database)
}

// ExpandPath resolves a leading ~/ against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: user config dir: %w", err)
	}
	return filepath.Join(dir, "eventd", "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database", d.Database)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("max_window_days", d.MaxWindowDays)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("reminders.enabled", d.Reminders.Enabled)
	v.SetDefault("reminders.lead_minutes", d.Reminders.LeadMinutes)
	v.SetDefault("reminders.refresh", d.Reminders.Refresh)
	v.SetDefault("reminders.horizon_hours", d.Reminders.HorizonHours)
	v.SetDefault("reminders.buffer", d.Reminders.Buffer)
}

// Load reads path through v, layering EVENTD_* environment variables and any
// flags already bound to v. A missing file is created with defaults.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Save(path, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that decode cleanly but cannot work together.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reminders.Enabled {
		span := time.Duration(c.Reminders.HorizonHours)*time.Hour + time.Duration(c.Reminders.LeadMinutes)*time.Minute
		if limit := maxReminderSpan(c.MaxWindowDays); span > limit {
			return fmt.Errorf("reminders: horizon_hours plus lead_minutes is %s, max_window_days=%d allows at most %s",
				span, c.MaxWindowDays, limit)
		}
	}
	return nil
}

// maxReminderSpan is the longest planner lookahead whose calendar dates fit
// in days, starting at any time of day and across one DST shift.
func maxReminderSpan(days int) time.Duration {
	return time.Duration(days-1)*24*time.Hour - time.Hour
}

// Save writes cfg as YAML through a temp file and rename, leaving the file
// readable only by its owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
