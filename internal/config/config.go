package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/slotwise/booking-api/internal/service/schedule"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WindowConfig is one weekday's opening window; empty Start/End means
// closed.
type WindowConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type BusinessConfig struct {
	Timezone string                  `mapstructure:"timezone"`
	Hours    map[string]WindowConfig `mapstructure:"hours"`
}

type SlotsConfig struct {
	DurationMin int `mapstructure:"duration_min"`
	StepMin     int `mapstructure:"step_min"`
	BufferMin   int `mapstructure:"buffer_min"`
}

type AirtableConfig struct {
	BaseID             string `mapstructure:"base_id"`
	APIKey             string `mapstructure:"api_key"`
	BookingsTable      string `mapstructure:"bookings_table"`
	DisabledDatesTable string `mapstructure:"disabled_dates_table"`
}

type BaserowConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	Token              string `mapstructure:"token"`
	BookingsTable      string `mapstructure:"bookings_table"`
	DisabledDatesTable string `mapstructure:"disabled_dates_table"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type StoreConfig struct {
	// Backend selects the record store: airtable, baserow or postgres.
	Backend  string         `mapstructure:"backend"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Airtable AirtableConfig `mapstructure:"airtable"`
	Baserow  BaserowConfig  `mapstructure:"baserow"`
	Database DatabaseConfig `mapstructure:"database"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type EmailJSConfig struct {
	ServiceID   string `mapstructure:"service_id"`
	TemplateID  string `mapstructure:"template_id"`
	UserID      string `mapstructure:"user_id"`
	AccessToken string `mapstructure:"access_token"`
}

type EmailConfig struct {
	FromEmail         string        `mapstructure:"from_email"`
	FromName          string        `mapstructure:"from_name"`
	NotificationEmail string        `mapstructure:"notification_email"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	SMTP              SMTPConfig    `mapstructure:"smtp"`
	EmailJS           EmailJSConfig `mapstructure:"emailjs"`
}

type CaptchaConfig struct {
	Secret string `mapstructure:"secret"`
	// Skip disables verification for local development.
	Skip bool `mapstructure:"skip"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ContactLimit      int           `mapstructure:"contact_limit"`
	ContactWindow     time.Duration `mapstructure:"contact_window"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type AdminConfig struct {
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenExpiry  time.Duration `mapstructure:"token_expiry"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Business  BusinessConfig  `mapstructure:"business"`
	Slots     SlotsConfig     `mapstructure:"slots"`
	Store     StoreConfig     `mapstructure:"store"`
	Email     EmailConfig     `mapstructure:"email"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

var weekdayNames = map[string]int{
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
	"sunday":    7,
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)

	viper.SetDefault("business.timezone", "Europe/Berlin")
	viper.SetDefault("business.hours", map[string]WindowConfig{
		"monday":    {Start: "15:00", End: "17:00"},
		"tuesday":   {Start: "15:00", End: "19:00"},
		"wednesday": {Start: "15:00", End: "19:00"},
		"thursday":  {Start: "14:00", End: "19:00"},
		"friday":    {Start: "15:30", End: "19:00"},
	})

	viper.SetDefault("slots.duration_min", 20)
	viper.SetDefault("slots.step_min", 30)
	viper.SetDefault("slots.buffer_min", 0)

	viper.SetDefault("store.backend", "airtable")
	viper.SetDefault("store.timeout", 10*time.Second)
	viper.SetDefault("store.airtable.bookings_table", "Bookings")
	viper.SetDefault("store.airtable.disabled_dates_table", "DisabledDates")
	viper.SetDefault("store.baserow.base_url", "https://api.baserow.io")
	viper.SetDefault("store.database.port", 5432)
	viper.SetDefault("store.database.sslmode", "disable")

	viper.SetDefault("email.retry_attempts", 2)
	viper.SetDefault("email.retry_backoff", 400*time.Millisecond)
	viper.SetDefault("email.smtp.port", 587)

	viper.SetDefault("rate_limit.requests_per_second", 20.0)
	viper.SetDefault("rate_limit.burst", 40)
	viper.SetDefault("rate_limit.contact_limit", 6)
	viper.SetDefault("rate_limit.contact_window", time.Minute)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	viper.SetDefault("admin.token_expiry", 12*time.Hour)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("booking")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only deployments are fine; only a malformed file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate enforces startup invariants. Missing record store credentials
// are fatal for the booking backend.
func (c *Config) Validate() error {
	if c.Slots.DurationMin <= 0 || c.Slots.StepMin <= 0 || c.Slots.BufferMin < 0 {
		return fmt.Errorf("invalid slot config: duration=%d step=%d buffer=%d",
			c.Slots.DurationMin, c.Slots.StepMin, c.Slots.BufferMin)
	}

	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("invalid business timezone %q: %w", c.Business.Timezone, err)
	}

	for name, w := range c.Business.Hours {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown weekday %q in business hours", name)
		}
		if w.Start == "" && w.End == "" {
			continue
		}
		// Weekends are always closed; an hours entry for them would be
		// silently ignored, so reject it outright.
		if day == 6 || day == 7 {
			return fmt.Errorf("business hours %s: weekends cannot be opened", name)
		}
		start, err := schedule.ParseHHMM(w.Start)
		if err != nil {
			return fmt.Errorf("business hours %s: %w", name, err)
		}
		end, err := schedule.ParseHHMM(w.End)
		if err != nil {
			return fmt.Errorf("business hours %s: %w", name, err)
		}
		if start >= end {
			return fmt.Errorf("business hours %s: start %s not before end %s", name, w.Start, w.End)
		}
	}

	switch c.Store.Backend {
	case "airtable":
		if c.Store.Airtable.BaseID == "" || c.Store.Airtable.APIKey == "" {
			return fmt.Errorf("airtable backend requires store.airtable.base_id and store.airtable.api_key")
		}
	case "baserow":
		if c.Store.Baserow.Token == "" || c.Store.Baserow.BookingsTable == "" || c.Store.Baserow.DisabledDatesTable == "" {
			return fmt.Errorf("baserow backend requires store.baserow.token and table ids")
		}
	case "postgres":
		if c.Store.Database.Host == "" || c.Store.Database.Name == "" {
			return fmt.Errorf("postgres backend requires store.database.host and store.database.name")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return nil
}

// WeekHours converts the configured table into the schedule package's
// representation.
func (c *BusinessConfig) WeekHours() schedule.WeekHours {
	hours := make(schedule.WeekHours, len(c.Hours))
	for name, w := range c.Hours {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok || w.Start == "" || w.End == "" {
			continue
		}
		hours[day] = &schedule.Window{Start: w.Start, End: w.End}
	}
	return hours
}

// Location resolves the business timezone; Validate already guaranteed it
// loads.
func (c *BusinessConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *SlotsConfig) SlotConfig() schedule.SlotConfig {
	return schedule.SlotConfig{
		DurationMin: c.DurationMin,
		StepMin:     c.StepMin,
		BufferMin:   c.BufferMin,
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
