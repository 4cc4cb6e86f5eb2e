package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, k := range []string{"PORT", "APP_ENV", "DATABASE_URL", "DATA_PATH", "REDIS_ADDR", "TRAVEL_BUFFER_MINUTES", "HIGH_OVERLAP_RATIO", "DISPATCH_TIMEZONE", "LOCK_TTL_SECONDS", "METRICS_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "dispatch.db", cfg.DataPath)
	assert.Equal(t, 30*time.Minute, cfg.TravelBuffer)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 0.5, cfg.HighOverlapRatio)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.MetricsEnabled)
	assert.Nil(t, cfg.Scheduler().WorkloadPeriod)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_MASTER_SECRET", "master")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TRAVEL_BUFFER_MINUTES", "45")
	t.Setenv("HIGH_OVERLAP_RATIO", "0.75")
	t.Setenv("DISPATCH_TIMEZONE", "America/Chicago")
	t.Setenv("METRICS_ENABLED", "no")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.TravelBuffer)
	assert.False(t, cfg.MetricsEnabled)

	sc := cfg.Scheduler()
	assert.Equal(t, 0.75, sc.HighOverlapRatio)
	require.NotNil(t, sc.WorkloadPeriod)

	// 03:00 UTC is still the previous evening in Chicago.
	start := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	period := sc.WorkloadPeriod(timewindow.MustNew(start, start.Add(time.Hour)))
	assert.Equal(t, 1, period.Start().In(cfg.Location).Day())
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"zero buffer":      {"TRAVEL_BUFFER_MINUTES": "0"},
		"ratio above one":  {"HIGH_OVERLAP_RATIO": "1.5"},
		"negative ratio":   {"HIGH_OVERLAP_RATIO": "-0.1"},
		"unknown timezone": {"DISPATCH_TIMEZONE": "Mars/Olympus"},
		"zero lock ttl":    {"LOCK_TTL_SECONDS": "0"},
		"no secrets":       {"JWT_SECRET": "", "API_MASTER_SECRET": ""},
		"bad port":         {"PORT": "http"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
