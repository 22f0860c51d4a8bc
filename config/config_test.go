package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps-settlement-system/money"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GATEWAY_TOKEN", "tok")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("GATEWAY_TOKEN", "tok")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TOURNAMENT_SWEEP_INTERVAL", "30s")
	t.Setenv("WAGER_RATE_LIMIT", "nope")
	t.Setenv("SETTING_REDEMPTION_FEE_SC", "2.50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 10, cfg.WagerLimit)
	assert.Equal(t, money.Amount(250), cfg.Settings.RedemptionFeeSC)
	assert.Equal(t, money.Units(100), cfg.Settings.MinRedemptionSC)
	assert.False(t, cfg.ExportEnabled())
}

func TestSettingsRejectUnknownKeys(t *testing.T) {
	s := DefaultSettings()
	err := s.Set("house_always_wins", "1")
	var unknown *UnknownSettingError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "house_always_wins", unknown.Key)

	assert.Error(t, s.Set("max_bet_sc", "-1"))
	assert.Error(t, s.Set("max_bet_sc", "1.234"))

	require.NoError(t, s.Apply(map[string]string{"max_bet_sc": "50", "min_redemption_sc": "25"}))
	assert.Equal(t, money.Units(50), s.MaxBetSC)
	assert.Equal(t, money.Units(25), s.MinRedemptionSC)
}

func TestSettingKeysSorted(t *testing.T) {
	keys := SettingKeys()
	assert.Len(t, keys, 8)
	assert.IsNonDecreasing(t, keys)
}
