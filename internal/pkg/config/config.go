package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
	"github.com/Vodeneev/smartbet/internal/scraper/extract"
	"github.com/Vodeneev/smartbet/internal/scraper/gate"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Browser     BrowserConfig     `yaml:"browser"`
	Gate        gate.Config       `yaml:"gate"`
	Predictions PredictionsConfig `yaml:"predictions"`
	Results     ResultsConfig     `yaml:"results"`
	Settlement  SettlementConfig  `yaml:"settlement"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "sqlite"
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig enables the cross-process run lock when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

type BrowserConfig struct {
	Mode          string           `yaml:"mode"` // "chrome" or "http"
	Headful       bool             `yaml:"headful"`
	ExecPath      string           `yaml:"exec_path"`
	WindowWidth   int              `yaml:"window_width"`
	WindowHeight  int              `yaml:"window_height"`
	LaunchTimeout time.Duration    `yaml:"launch_timeout"`
	HTTPTimeout   time.Duration    `yaml:"http_timeout"`
	UserAgents    []string         `yaml:"user_agents"`
	Locales       []browser.Locale `yaml:"locales"`
}

// SourceConfig is shared by every scraped site.
type SourceConfig struct {
	Source            string        `yaml:"source"` // registered profile key
	URL               string        `yaml:"url"`    // overrides the profile URL
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	DelayMin          time.Duration `yaml:"delay_min"`
	DelayMax          time.Duration `yaml:"delay_max"`
}

type PredictionsConfig struct {
	SourceConfig   `yaml:",inline"`
	ScrollCount    int                         `yaml:"scroll_count"`
	ScrollDelayMin time.Duration               `yaml:"scroll_delay_min"`
	ScrollDelayMax time.Duration               `yaml:"scroll_delay_max"`
	Selectors      extract.PredictionSelectors `yaml:"selectors"`
}

type ResultsConfig struct {
	SourceConfig `yaml:",inline"`
	Selectors    extract.ResultSelectors `yaml:"selectors"`
}

type SettlementConfig struct {
	CandidateLimit int      `yaml:"candidate_limit"`
	HomeWinMarkets []string `yaml:"home_win_markets"`
}

type LedgerConfig struct {
	// StaleAfter is how long a RUNNING job may stay open before startup marks it FAILED.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type SchedulerConfig struct {
	Disabled         bool   `yaml:"disabled"`
	Timezone         string `yaml:"timezone"`
	AcquisitionSpec  string `yaml:"acquisition_spec"`
	VerificationSpec string `yaml:"verification_spec"`
}

type HTTPConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional JSON log file, appended to
}

// Load reads .env (if present), the YAML file at configPath, then environment
// overrides, and fills defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Browser.Mode, "BROWSER_MODE")
	setString(&c.Browser.ExecPath, "CHROME_PATH")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "smartbet:lock:"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 30 * time.Minute
	}

	if c.Browser.Mode == "" {
		c.Browser.Mode = "chrome"
	}
	if c.Browser.LaunchTimeout == 0 {
		c.Browser.LaunchTimeout = 30 * time.Second
	}
	if c.Browser.HTTPTimeout == 0 {
		c.Browser.HTTPTimeout = 30 * time.Second
	}

	p := &c.Predictions
	if p.Source == "" {
		p.Source = "footystats"
	}
	if p.NavigationTimeout == 0 {
		p.NavigationTimeout = 60 * time.Second
	}
	if p.DelayMin == 0 && p.DelayMax == 0 {
		p.DelayMin, p.DelayMax = 2*time.Second, 4*time.Second
	}
	if p.ScrollCount == 0 {
		p.ScrollCount = 3
	}
	if p.ScrollDelayMin == 0 && p.ScrollDelayMax == 0 {
		p.ScrollDelayMin, p.ScrollDelayMax = 500*time.Millisecond, time.Second
	}

	r := &c.Results
	if r.Source == "" {
		r.Source = "sofascore"
	}
	if r.NavigationTimeout == 0 {
		r.NavigationTimeout = 60 * time.Second
	}
	if r.DelayMin == 0 && r.DelayMax == 0 {
		r.DelayMin, r.DelayMax = 2*time.Second, 3*time.Second
	}

	if c.Settlement.CandidateLimit == 0 {
		c.Settlement.CandidateLimit = 50
	}
	if len(c.Settlement.HomeWinMarkets) == 0 {
		c.Settlement.HomeWinMarkets = []string{"Home", "1X2", "HomeWin"}
	}
	if c.Ledger.StaleAfter == 0 {
		c.Ledger.StaleAfter = 2 * time.Hour
	}

	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "UTC"
	}
	if c.Scheduler.AcquisitionSpec == "" {
		c.Scheduler.AcquisitionSpec = "0 6 * * *"
	}
	if c.Scheduler.VerificationSpec == "" {
		c.Scheduler.VerificationSpec = "0 * * * *"
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required (set database.dsn or DATABASE_URL)")
	}
	switch c.Browser.Mode {
	case "chrome", "http":
	default:
		return fmt.Errorf("unsupported browser mode %q", c.Browser.Mode)
	}
	if c.Predictions.DelayMax < c.Predictions.DelayMin {
		return fmt.Errorf("predictions.delay_max must not be below delay_min")
	}
	if c.Results.DelayMax < c.Results.DelayMin {
		return fmt.Errorf("results.delay_max must not be below delay_min")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}
