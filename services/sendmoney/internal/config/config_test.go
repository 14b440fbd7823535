package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOVUK_PAY_URL", "https://pay.example/v1")
	t.Setenv("GOVUK_PAY_AUTH_TOKEN", "pay-key")
	t.Setenv("SERVICE_CHARGE_PERCENTAGE", "2.4")
	t.Setenv("SERVICE_CHARGE_FIXED", "0.20")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.GovPay.Timeout)
	assert.Equal(t, 500, cfg.PaymentsAPI.PageSize)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.IncompleteDelay)
	assert.Equal(t, "2.4", cfg.Payment.ServiceChargePercentage.String())
	assert.Equal(t, "0.2", cfg.Payment.ServiceChargeFixed.String())
	assert.True(t, cfg.Payment.ShowDebitCardOption)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "sendmoney.notifications", cfg.Kafka.NotificationTopic)
}

func TestLoad_RequiresGateway(t *testing.T) {
	t.Setenv("GOVUK_PAY_URL", "")
	t.Setenv("GOVUK_PAY_AUTH_TOKEN", "")
	os.Unsetenv("GOVUK_PAY_URL")
	os.Unsetenv("GOVUK_PAY_AUTH_TOKEN")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsBadRollout(t *testing.T) {
	t.Setenv("GOVUK_PAY_URL", "https://pay.example/v1")
	t.Setenv("GOVUK_PAY_AUTH_TOKEN", "pay-key")
	t.Setenv("PAYMENT_DELAYED_CAPTURE_ROLLOUT_PERCENTAGE", "150")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0..100")
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("GOVUK_PAY_URL", "")
	t.Setenv("GOVUK_PAY_AUTH_TOKEN", "")
	os.Unsetenv("GOVUK_PAY_URL")
	os.Unsetenv("GOVUK_PAY_AUTH_TOKEN")

	path := filepath.Join(t.TempDir(), "sendmoney.env")
	content := "GOVUK_PAY_URL=https://pay.example/v1\nGOVUK_PAY_AUTH_TOKEN=from-file\nSWEEP_INTERVAL=5m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Cleanup(func() {
		os.Unsetenv("GOVUK_PAY_URL")
		os.Unsetenv("GOVUK_PAY_AUTH_TOKEN")
		os.Unsetenv("SWEEP_INTERVAL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GovPay.AuthToken)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
