package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestDefaultsDisableCrossTimeframeRV(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.StrategyEnabled("cross_timeframe_rv"))
	assert.True(t, cfg.StrategyEnabled("certainty_capture"))
}

func TestStrategyEnabledDefaultsTrueForUnknownEntry(t *testing.T) {
	cfg := Defaults()
	delete(cfg.Strategies, "lp_extreme")
	assert.True(t, cfg.StrategyEnabled("lp_extreme"))
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Defaults()
	cfg.Strategies["not_a_real_strategy"] = true
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadEWMALambda(t *testing.T) {
	cfg := Defaults()
	cfg.EWMALambda = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresWalletWhenLive(t *testing.T) {
	cfg := Defaults()
	cfg.DryRun = false
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonNegativeLossHalts(t *testing.T) {
	cfg := Defaults()
	cfg.DailyLossHalt = 0.03
	assert.Error(t, cfg.Validate())
}
