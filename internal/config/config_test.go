package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/payup/internal/apperr"
)

const testSecret = "0123456789abcdef0123"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAYUP_SECRET", testSecret)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Notify.Cooldown)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, "EUR", cfg.Payment.Currency)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, "payup.yaml", `
server:
  addr: ":9090"
  base_url: https://payup.example.com
auth:
  secret: `+testSecret+`
notify:
  cooldown: 6h
  workers: 8
`)
	t.Setenv("PAYUP_NOTIFY_WORKERS", "2")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://payup.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 6*time.Hour, cfg.Notify.Cooldown)
	assert.Equal(t, 2, cfg.Notify.Workers, "environment wins over the file")
	assert.Equal(t, 5.0, cfg.Notify.RatePerSecond, "untouched defaults survive")
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeFile(t, ".env", "PAYUP_SECRET="+testSecret+"\n")
	// Registered so the value loaded from the file is restored afterwards.
	t.Setenv("PAYUP_SECRET", "")
	require.NoError(t, os.Unsetenv("PAYUP_SECRET"))

	cfg, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.Secret)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err, "a missing env file is not an error")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"missing secret", map[string]string{"PAYUP_SECRET": ""}, "auth.secret"},
		{"postgres without url", map[string]string{"PAYUP_DB_DRIVER": "postgres", "DATABASE_URL": ""}, "database.url"},
		{"unknown driver", map[string]string{"PAYUP_DB_DRIVER": "mysql"}, "database.driver"},
		{"no workers", map[string]string{"PAYUP_NOTIFY_WORKERS": "0"}, "notify.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PAYUP_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", "")
			require.ErrorIs(t, err, apperr.ErrValidation)

			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("PAYUP_SECRET", testSecret)
	t.Setenv("PAYUP_NOTIFY_COOLDOWN", "soon")

	_, err := Load("", "")
	assert.ErrorContains(t, err, "PAYUP_NOTIFY_COOLDOWN")
}
