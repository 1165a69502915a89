package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	LogLevel      string `mapstructure:"log_level"`
	Server        struct {
		Port    int `mapstructure:"port"`
		TLSPort int `mapstructure:"tls_port"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Auth struct {
		Issuer          string   `mapstructure:"issuer"`
		ClientID        string   `mapstructure:"client_id"`
		ClientSecret    string   `mapstructure:"client_secret"`
		RedirectURL     string   `mapstructure:"redirect_url"`
		SwaggerClientID string   `mapstructure:"swagger_client_id"`
		AdminEmails     []string `mapstructure:"admin_emails"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Email struct {
		ResendAPIKey string `mapstructure:"resend_api_key"`
		FromAddress  string `mapstructure:"from_address"`
		AdminAddress string `mapstructure:"admin_address"`
		AppURL       string `mapstructure:"app_url"`
	} `mapstructure:"email"`
	Settings struct {
		DefaultHourlyRate float64 `mapstructure:"default_hourly_rate"`
	} `mapstructure:"settings"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// IsDev reports whether the service runs in the DEV environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "DEV")
}

// DSN builds the pgx connection string for the configured database.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "PROD")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls_port", 8443)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "workflow_tracker")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "")
	v.SetDefault("auth.swagger_client_id", "")
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{})
	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.from_address", "Workflow Tracker <onboarding@resend.dev>")
	v.SetDefault("email.admin_address", "")
	v.SetDefault("email.app_url", "http://localhost:8080")
	v.SetDefault("settings.default_hourly_rate", 50.0)
}

// LoadConfig loads the configuration from an optional .env file, a config.yaml
// in . or ./config, and the environment (DB_HOST, AUTH_CLIENT_ID, ...).
// A missing config file is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// also accept the unprefixed names used by older deployments
	_ = v.BindEnv("email.resend_api_key", "EMAIL_RESEND_API_KEY", "RESEND_API_KEY")
	_ = v.BindEnv("email.admin_address", "EMAIL_ADMIN_ADDRESS", "ADMIN_EMAIL")
	_ = v.BindEnv("email.from_address", "EMAIL_FROM_ADDRESS", "FROM_EMAIL")
	_ = v.BindEnv("email.app_url", "EMAIL_APP_URL", "APP_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)
	config.Email.AppURL = strings.TrimRight(strings.TrimSpace(config.Email.AppURL), "/")
	if config.Settings.DefaultHourlyRate <= 0 {
		config.Settings.DefaultHourlyRate = 50
	}

	return &config, nil
}

// normalizeIssuer removes any trailing slash so users can paste the issuer
// URL straight from their identity provider's console.
func normalizeIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
