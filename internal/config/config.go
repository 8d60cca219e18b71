package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded at startup).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Telnyx     TelnyxConfig
	Greetings  GreetingsConfig
	Calendar   CalendarConfig
	Automation AutomationConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TelnyxConfig struct {
	APIKey        string
	WebhookSecret string

	// BaseURL overrides the API endpoint; used in tests only.
	BaseURL string

	// CentralForwardNumber receives calls when an unavailable caller presses 2.
	CentralForwardNumber string
}

type GreetingsConfig struct {
	// AssetBaseURL hosts per-user default voicemail greeting mp3 assets.
	AssetBaseURL string

	// Voice and Locale drive synthesized-speech fallback.
	Voice  string
	Locale string
}

type CalendarConfig struct {
	// FeedBaseURL points at the calendar bridge serving per-user event
	// feeds. Empty disables calendar sync entirely.
	FeedBaseURL string
}

type AutomationConfig struct {
	// SchedulerTick drives time-of-day scheduled automations. The matcher
	// compares HH:MM for equality, so ticks coarser than a minute miss fires.
	SchedulerTick time.Duration

	// DispatcherTick drives the persisted delayed-action dispatcher.
	DispatcherTick time.Duration
}

func Load() (Config, error) {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = optDuration("JWT_REFRESH_TTL")

	c.Telnyx.APIKey = os.Getenv("TELNYX_API_KEY")
	c.Telnyx.WebhookSecret = os.Getenv("TELNYX_WEBHOOK_SECRET")
	c.Telnyx.BaseURL = strings.TrimSpace(os.Getenv("TELNYX_BASE_URL"))
	c.Telnyx.CentralForwardNumber = strings.TrimSpace(os.Getenv("CENTRAL_FORWARD_NUMBER"))

	c.Greetings.AssetBaseURL = strings.TrimSpace(os.Getenv("GREETING_ASSET_BASE_URL"))
	c.Greetings.Voice = strings.TrimSpace(os.Getenv("GREETING_VOICE"))
	c.Greetings.Locale = strings.TrimSpace(os.Getenv("GREETING_LOCALE"))

	c.Calendar.FeedBaseURL = strings.TrimSpace(os.Getenv("CALENDAR_FEED_BASE_URL"))

	c.Automation.SchedulerTick = optDuration("AUTOMATION_SCHEDULER_TICK")
	c.Automation.DispatcherTick = optDuration("AUTOMATION_DISPATCHER_TICK")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local/dev/staging/production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, errors.New("APP_PORT must be in 1..65535"))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable/require/verify-ca/verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Telnyx.WebhookSecret == "" {
			errs = append(errs, errors.New("TELNYX_WEBHOOK_SECRET is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Telnyx.APIKey == "" {
		errs = append(errs, errors.New("TELNYX_API_KEY is required"))
	}
	if c.Telnyx.CentralForwardNumber == "" {
		errs = append(errs, errors.New("CENTRAL_FORWARD_NUMBER is required"))
	}

	if c.Greetings.AssetBaseURL == "" {
		errs = append(errs, errors.New("GREETING_ASSET_BASE_URL is required"))
	}
	if c.Greetings.Voice == "" {
		c.Greetings.Voice = "female"
	}
	if c.Greetings.Locale == "" {
		c.Greetings.Locale = "en-US"
	}

	if c.Automation.SchedulerTick <= 0 {
		c.Automation.SchedulerTick = time.Minute
	}
	if c.Automation.DispatcherTick <= 0 {
		c.Automation.DispatcherTick = 15 * time.Second
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return errors.New(b.String())
}
