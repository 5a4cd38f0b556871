package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hallmail/hallmail/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Postgres   PostgresConfig   `mapstructure:"postgres" validate:"required"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Email      EmailConfig      `mapstructure:"email"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Mailbox    MailboxConfig    `mapstructure:"mailbox"`
	Billing    BillingConfig    `mapstructure:"billing" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

type DeploymentConfig struct {
	Environment string `mapstructure:"environment" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
	// AllowedOrigins is used by the CORS middleware, empty allows all
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// StripeConfig is optional at load time. Operations needing a missing value
// report a configuration error instead.
type StripeConfig struct {
	SecretKey                string `mapstructure:"secret_key"`
	BasePriceID              string `mapstructure:"base_price_id"`
	AdditionalAccountPriceID string `mapstructure:"additional_account_price_id"`
	WebhookSecret            string `mapstructure:"webhook_secret"`
	PortalReturnURL          string `mapstructure:"portal_return_url"`
}

type AuthConfig struct {
	Provider string         `mapstructure:"provider" validate:"required,oneof=supabase"`
	Secret   string         `mapstructure:"secret"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
}

type EmailConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ResendAPIKey   string `mapstructure:"resend_api_key"`
	FromAddress    string `mapstructure:"from_address"`
	ReplyTo        string `mapstructure:"reply_to"`
	SupportAddress string `mapstructure:"support_address"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// PipelineConfig points at the external classification pipeline that is told
// when a mailbox gets connected
type PipelineConfig struct {
	ActivationWebhookURL string        `mapstructure:"activation_webhook_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	RetryMax             int           `mapstructure:"retry_max"`
}

type MailboxConfig struct {
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	EncryptionKey string        `mapstructure:"encryption_key"`
}

type BillingConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval" validate:"required"`
	CancelPollTimeout   time.Duration `mapstructure:"cancel_poll_timeout" validate:"required"`
	CheckoutPollTimeout time.Duration `mapstructure:"checkout_poll_timeout" validate:"required"`
	// SyncRatePerMinute throttles force sync per user
	SyncRatePerMinute int `mapstructure:"sync_rate_per_minute"`
	SyncBurst         int `mapstructure:"sync_burst"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real env vars take precedence
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/hallmail")

	v.SetEnvPrefix("HALLMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Environment: "local"},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "hallmail",
			DBName:       "hallmail",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{Provider: "supabase"},
		Billing: BillingConfig{
			PollInterval:        2 * time.Second,
			CancelPollTimeout:   10 * time.Second,
			CheckoutPollTimeout: 15 * time.Second,
			SyncRatePerMinute:   6,
			SyncBurst:           3,
		},
		Mailbox:  MailboxConfig{DialTimeout: 10 * time.Second},
		Pipeline: PipelineConfig{Timeout: 10 * time.Second, RetryMax: 3},
		Cache:    CacheConfig{Enabled: true},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// MissingKeys lists the Stripe settings that are required for billing
// operations and currently empty
func (s StripeConfig) MissingKeys() []string {
	var missing []string
	if s.SecretKey == "" {
		missing = append(missing, "stripe.secret_key")
	}
	if s.BasePriceID == "" {
		missing = append(missing, "stripe.base_price_id")
	}
	if s.AdditionalAccountPriceID == "" {
		missing = append(missing, "stripe.additional_account_price_id")
	}
	return missing
}
