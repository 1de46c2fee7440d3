package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "TXN", cfg.Ledger.ReferencePrefix)
	assert.Equal(t, 5, cfg.Ledger.MaxCommitAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Notify.RetryBackoff)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LEDGER_MAX_COMMIT_ATTEMPTS", "0")
	t.Setenv("NOTIFY_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 1, cfg.Ledger.MaxCommitAttempts)
	assert.Equal(t, 4, cfg.Notify.Workers)
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", c.DSN())

	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.DSN())
}
