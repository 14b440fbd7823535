package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Development(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "send_money", cfg.MySQL.Database)
}

func TestLoad_ProductionRequiresPublicKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_PUBLIC_KEY_PATH")
}
