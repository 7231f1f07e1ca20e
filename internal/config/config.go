// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	HTTP      HTTPConfig              `mapstructure:"http"`
	Scrape    ScrapeConfig            `mapstructure:"scrape"`
	DB        DBConfig                `mapstructure:"db"`
	Output    OutputConfig            `mapstructure:"output"`
	Schedule  ScheduleConfig          `mapstructure:"schedule"`
	API       APIConfig               `mapstructure:"api"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Targets   map[string]TargetConfig `mapstructure:"targets"`
	TargetSeq []string                `mapstructure:"target_order"`
}

// HTTPConfig configures the fetch client and its retry behavior.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
}

// ScrapeConfig governs pacing between requests and jobs.
type ScrapeConfig struct {
	DelaySeconds    int `mapstructure:"delay_seconds"`
	JobPauseSeconds int `mapstructure:"job_pause_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// OutputConfig sets paths for flat-file exports and the run report.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	JSONDir    string `mapstructure:"json_dir"`
	ReportPath string `mapstructure:"report_path"`
	JSONExport bool   `mapstructure:"json_export"`
}

// ScheduleConfig controls the periodic run loop.
type ScheduleConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
}

// APIConfig controls the status HTTP endpoint served in schedule mode.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TargetConfig holds the per-target URL list.
type TargetConfig struct {
	URLs []string `mapstructure:"urls"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHOPSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("scrape.delay_seconds", 1)
	v.SetDefault("scrape.job_pause_seconds", 2)
	// Viper only unmarshals env-backed keys it knows about, so the DSN
	// needs a default even though it has no usable zero value.
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.json_dir", "output/json")
	v.SetDefault("output.report_path", "output/scraping_report.txt")
	v.SetDefault("output.json_export", false)
	v.SetDefault("schedule.interval_hours", 24)
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("logging.development", true)
	v.SetDefault("target_order", []string{"books", "products"})
	v.SetDefault("targets.books.urls", []string{"https://books.toscrape.com/"})
	v.SetDefault("targets.products.urls", []string{"https://webscraper.io/test-sites/e-commerce/allinone"})
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffInitialMs < 0 {
		return fmt.Errorf("http.backoff_initial_ms cannot be negative")
	}
	if c.Scrape.DelaySeconds < 0 {
		return fmt.Errorf("scrape.delay_seconds cannot be negative")
	}
	if c.Scrape.JobPauseSeconds < 0 {
		return fmt.Errorf("scrape.job_pause_seconds cannot be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Schedule.IntervalHours <= 0 {
		return fmt.Errorf("schedule.interval_hours must be > 0")
	}
	for _, name := range c.TargetSeq {
		target, ok := c.Targets[name]
		if !ok {
			return fmt.Errorf("target_order names unknown target %q", name)
		}
		if len(target.URLs) == 0 {
			return fmt.Errorf("targets.%s.urls must not be empty", name)
		}
	}
	return nil
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial converts the first-retry backoff into a duration.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// Delay converts the politeness delay into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scrape.DelaySeconds) * time.Second
}

// JobPause converts the inter-job pause into a duration.
func (c Config) JobPause() time.Duration {
	return time.Duration(c.Scrape.JobPauseSeconds) * time.Second
}

// Interval converts the schedule interval into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalHours) * time.Hour
}
