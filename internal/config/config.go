package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"homestay/internal/availability"
)

type Config struct {
	HTTP struct {
		Port           int     `yaml:"port"`
		APIKey         string  `yaml:"api_key"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Booking BookingConfig `yaml:"booking"`

	// Rooms are created at startup when missing.
	Rooms []RoomConfig `yaml:"rooms"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Telegram struct {
		BotToken       string  `yaml:"bot_token"`
		ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
		// DigestTime is when the daily arrivals summary goes out, empty disables it.
		DigestTime string `yaml:"digest_time"`
	} `yaml:"telegram"`

	Logging struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // console, json
	} `yaml:"logging"`
}

// BookingConfig holds the availability rules shared by every check.
type BookingConfig struct {
	// BufferMinutes is nil when unset so that an explicit 0 is kept.
	BufferMinutes   *int   `yaml:"buffer_minutes"`
	CheckInTime     string `yaml:"check_in_time"`  // "14:00"
	CheckOutTime    string `yaml:"check_out_time"` // "12:00"
	Timezone        string `yaml:"timezone"`       // IANA name, empty means system zone
	MaxNights       int    `yaml:"max_nights"`
	CalendarMaxDays int    `yaml:"calendar_max_days"`
}

type RoomConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 10
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/homestay.db"
	}
	if c.Booking.BufferMinutes == nil {
		def := availability.DefaultBufferMinutes
		c.Booking.BufferMinutes = &def
	}
	if c.Booking.CheckInTime == "" {
		c.Booking.CheckInTime = availability.DefaultCheckIn.String()
	}
	if c.Booking.CheckOutTime == "" {
		c.Booking.CheckOutTime = availability.DefaultCheckOut.String()
	}
	if c.Booking.MaxNights <= 0 {
		c.Booking.MaxNights = 30
	}
	if c.Booking.CalendarMaxDays <= 0 {
		c.Booking.CalendarMaxDays = 92
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("booking: %w", err)
	}
	if c.Redis.CacheTTLSeconds < 0 {
		return fmt.Errorf("redis.cache_ttl_seconds cannot be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Telegram.DigestTime != "" {
		if _, err := availability.ParseClock(c.Telegram.DigestTime); err != nil {
			return fmt.Errorf("telegram.digest_time: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.Rooms))
	for i, r := range c.Rooms {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("rooms[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("rooms[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Policy turns the booking section into the availability policy used by every check.
func (c *Config) Policy() (availability.Policy, error) {
	checkIn, err := availability.ParseClock(c.Booking.CheckInTime)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("check_in_time: %w", err)
	}
	checkOut, err := availability.ParseClock(c.Booking.CheckOutTime)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("check_out_time: %w", err)
	}

	loc := time.Local
	if c.Booking.Timezone != "" {
		loc, err = time.LoadLocation(c.Booking.Timezone)
		if err != nil {
			return availability.Policy{}, fmt.Errorf("timezone %q: %w", c.Booking.Timezone, err)
		}
	}

	buffer := availability.DefaultBufferMinutes
	if c.Booking.BufferMinutes != nil {
		buffer = *c.Booking.BufferMinutes
	}
	return availability.NewPolicy(time.Duration(buffer)*time.Minute, checkIn, checkOut, loc)
}

// CacheTTL returns the occupancy cache lifetime; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
