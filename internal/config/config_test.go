package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.DevLogins)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEV_LOGINS", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://axels.com, https://admin.axels.com")
	t.Setenv("HTTP_TIMEOUT", "3s")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.DevLogins)
	assert.Equal(t, []string{"https://axels.com", "https://admin.axels.com"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestSplitCSVBlanksFallBack(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitCSV(" , ,"))
}

func TestParseDurationBadValue(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("nonsense", 5*time.Second))
}
