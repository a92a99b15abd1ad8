package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "avstage")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.BookingLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.SubmissionWindow)
	assert.Equal(t, "notifications", cfg.Queue.Name)
	assert.Equal(t, "admin", cfg.JWT.AdminRole)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, k := range []string{"DB_USER", "DB_NAME", "JWT_SECRET"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"RATE_LIMIT_BACKEND": "memcached"}},
		{"redis without address", map[string]string{"RATE_LIMIT_BACKEND": "redis"}},
		{"zero limit", map[string]string{"RATE_LIMIT_BOOKING": "0"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	dsn := DBConfig{User: "u", Pass: "p", Host: "db", Port: "3306", Name: "n"}.DSN()
	assert.Equal(t, "u:p@tcp(db:3306)/n?parseTime=true&loc=UTC&charset=utf8mb4&clientFoundRows=true", dsn)
}

func TestNewRedisClient_NoAddress(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisConfig{}))
}

func TestLoadNotifier_NoDatabaseNeeded(t *testing.T) {
	for _, k := range []string{"DB_USER", "DB_NAME", "JWT_SECRET"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("SMTP_HOST", "mail.internal")

	cfg, err := LoadNotifier()
	require.NoError(t, err)
	assert.Equal(t, "mail.internal", cfg.Mail.Host)
	assert.Equal(t, "notifications", cfg.Queue.Name)
	assert.Equal(t, 10, cfg.Queue.Prefetch)
}
