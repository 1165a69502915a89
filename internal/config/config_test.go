package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(t.TempDir())

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 50.0, cfg.Settings.DefaultHourlyRate)
	assert.False(t, cfg.IsDev())
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	v := writeConfig(t, `
environment: dev
dev_mode_bypass: true
db:
  host: db.internal
  name: tracker
auth:
  issuer: https://id.example.com/oauth2/default/
  admin_emails: [ops@example.com]
settings:
  default_hourly_rate: 72.5
email:
  app_url: https://tracker.example.com/
`)

	cfg, err := load(v)
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.DevModeBypass)
	assert.Equal(t, "https://id.example.com/oauth2/default", cfg.Auth.Issuer)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, 72.5, cfg.Settings.DefaultHourlyRate)
	assert.Equal(t, "https://tracker.example.com", cfg.Email.AppURL)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password= dbname=tracker sslmode=disable", cfg.DSN())
	assert.NotEmpty(t, cfg.ConfigFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "pg.example.com")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	v := writeConfig(t, "db:\n  host: ignored\n")

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "pg.example.com", cfg.DB.Host)
	assert.Equal(t, "re_test", cfg.Email.ResendAPIKey)
	assert.Equal(t, "admin@example.com", cfg.Email.AdminAddress)
}

func TestLoad_MalformedFile(t *testing.T) {
	v := writeConfig(t, "db: [unterminated\n")

	_, err := load(v)
	assert.Error(t, err)
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
