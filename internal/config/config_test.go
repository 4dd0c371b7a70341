package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 5, cfg.Engine.MaxIterations)
	assert.Equal(t, 3, cfg.Engine.MaxAttemptsPerQuestion)
	assert.Equal(t, time.Second, cfg.Engine.DebounceWindow)
	assert.Equal(t, 80000.0, cfg.Resolver.DefaultSalary)
	assert.Contains(t, cfg.Resolver.SalaryKeywords, "compensation")
	assert.Contains(t, cfg.Resolver.ConsentPhrases, "i agree")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Browser.StableChecks)
}

func TestLoadOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("engine.max_iterations", 9)
	v.Set("resolver.salary_keywords", []string{"gehalt"})

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engine.MaxIterations)
	assert.Equal(t, []string{"gehalt"}, cfg.Resolver.SalaryKeywords)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"ZeroIterations", "engine.max_iterations", 0},
		{"ZeroAttempts", "engine.max_attempts_per_question", 0},
		{"ChangeThresholdTooHigh", "browser.change_threshold", 1.5},
		{"RadioThresholdNegative", "resolver.radio_threshold", -1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(tc.key, tc.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
