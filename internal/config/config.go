package config

import (
	"fmt"
	"time"
)

type Config struct {
	Sites               map[string]SiteDescriptor `yaml:"news_sites"`
	OutputDir           string                    `yaml:"output_dir"`
	Rod                 RodConfig                 `yaml:"rod"`
	Backoff             BackoffConfig             `yaml:"backoff"`
	RobotsCacheTTLHours int                       `yaml:"robots_cache_ttl_hours"`
	HTTP                HttpConfig                `yaml:"http"`
	RateLimit           RateLimitConfig           `yaml:"rate_limit"`
	Crawl               CrawlConfig               `yaml:"crawl"`
	Normalize           NormalizeConfig           `yaml:"normalize"`
	Storage             StorageConfig             `yaml:"storage"`
	Observability       ObservabilityConfig       `yaml:"observability"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
	LazyLoadDelayS   int    `yaml:"lazy_load_delay_s"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type HttpConfig struct {
	UserAgent                 string            `yaml:"user_agent"`
	ConnectTimeoutMS          int               `yaml:"connect_timeout_ms"`
	TotalTimeoutMS            int               `yaml:"total_timeout_ms"`
	MaxRetries                int               `yaml:"max_retries"`
	MaxIdleConnections        int               `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int               `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int               `yaml:"idle_connection_timeout_s"`
	MaxBodyKB                 int               `yaml:"max_body_kb"`
	RespectRobots             bool              `yaml:"respect_robots"`
	AcceptLanguage            map[string]string `yaml:"accept_language"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

// CrawlConfig управляет пулом воркеров, которые качают статьи.
type CrawlConfig struct {
	Workers   int `yaml:"workers"`
	DeadlineS int `yaml:"deadline_s"`
}

type NormalizeConfig struct {
	// Language is an ISO 639-1 code or "auto".
	Language        string              `yaml:"language"`
	StopWords       map[string][]string `yaml:"stop_words"`
	InputCharset    string              `yaml:"input_charset"`
	MaxPreviewChars int                 `yaml:"max_preview_chars"`
	PreviewRows     int                 `yaml:"preview_rows"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
	BatchSize        int    `yaml:"batch_size"`
}

type ObservabilityConfig struct {
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// applyDefaults заполняет ключи, которые можно не указывать в YAML
func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.RobotsCacheTTLHours == 0 {
		c.RobotsCacheTTLHours = 12
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "newspaper-pipeline/1.0"
	}
	if c.HTTP.ConnectTimeoutMS == 0 {
		c.HTTP.ConnectTimeoutMS = 10000
	}
	if c.HTTP.TotalTimeoutMS == 0 {
		c.HTTP.TotalTimeoutMS = 30000
	}
	if c.HTTP.MaxIdleConnections == 0 {
		c.HTTP.MaxIdleConnections = 100
	}
	if c.HTTP.MaxIdleConnectionsPerHost == 0 {
		c.HTTP.MaxIdleConnectionsPerHost = 10
	}
	if c.HTTP.MaxBodyKB == 0 {
		c.HTTP.MaxBodyKB = 10 * 1024
	}
	if c.HTTP.IdleConnectionTimeoutS == 0 {
		c.HTTP.IdleConnectionTimeoutS = 90
	}
	if c.Backoff.MinMS == 0 {
		c.Backoff.MinMS = 250
	}
	if c.Backoff.MaxMS == 0 {
		c.Backoff.MaxMS = 2000
	}
	if c.RateLimit.MaxConcurrentPerHost == 0 {
		c.RateLimit.MaxConcurrentPerHost = 4
	}
	if c.RateLimit.RPM == 0 {
		c.RateLimit.RPM = 120
	}
	if c.Crawl.Workers == 0 {
		c.Crawl.Workers = 4
	}
	if c.Normalize.Language == "" {
		c.Normalize.Language = "es"
	}
	if c.Normalize.InputCharset == "" {
		c.Normalize.InputCharset = "utf-8"
	}
	if c.Normalize.MaxPreviewChars == 0 {
		c.Normalize.MaxPreviewChars = 60
	}
	if c.Normalize.PreviewRows == 0 {
		c.Normalize.PreviewRows = 10
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Driver == "sqlite" {
		c.Storage.DSN = "newspaper.db"
	}
	if c.Storage.CommandTimeoutMS == 0 {
		c.Storage.CommandTimeoutMS = 30000
	}
	if c.Storage.BatchSize == 0 {
		c.Storage.BatchSize = 100
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.MaxSizeMB == 0 {
		c.Observability.MaxSizeMB = 50
	}
	if c.Observability.MaxBackups == 0 {
		c.Observability.MaxBackups = 5
	}
	if c.Observability.MaxAgeDays == 0 {
		c.Observability.MaxAgeDays = 30
	}
	for uid, site := range c.Sites {
		site.UID = uid
		if site.Language == "" {
			site.Language = c.Normalize.Language
		}
		c.Sites[uid] = site
	}
}

// Validation
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("news_sites must contain at least one site")
	}
	for uid, site := range c.Sites {
		if site.URL == "" {
			return fmt.Errorf("news_sites.%s.url is required", uid)
		}
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxBodyKB < 0 {
		return fmt.Errorf("http.max_body_kb must be >= 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.DeadlineS < 0 {
		return fmt.Errorf("crawl.deadline_s must be >= 0")
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "mssql" {
		return fmt.Errorf("storage.driver must be 'sqlite' or 'mssql'")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.Storage.BatchSize <= 0 {
		return fmt.Errorf("storage.batch_size must be > 0")
	}
	if c.RobotsCacheTTLHours <= 0 {
		return fmt.Errorf("robots_cache_ttl_hours must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
		if c.Rod.LazyLoadDelayS < 0 {
			return fmt.Errorf("rod.lazy_load_delay_s must be >= 0")
		}
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetMaxBodyBytes() int64 {
	return int64(c.HTTP.MaxBodyKB) * 1024
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetCrawlDeadline() time.Duration {
	return time.Duration(c.Crawl.DeadlineS) * time.Second
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.RobotsCacheTTLHours) * time.Hour
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetRodLazyLoadDelay() time.Duration {
	return time.Duration(c.Rod.LazyLoadDelayS) * time.Second
}
