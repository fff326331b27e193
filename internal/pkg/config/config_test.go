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
	t.Setenv("GOTENBERG_API_URL", "")
	t.Setenv("RENDER_ENGINE_MAX_SESSIONS", "")
	t.Setenv("PRIMARY_RENDERER_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "http://gotenberg:3000", cfg.Engine.URL)
	assert.True(t, cfg.Engine.Enabled)
	assert.Equal(t, 4, cfg.Engine.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.True(t, cfg.VerifyOutput)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GOTENBERG_API_URL", "http://engine:3000/")
	t.Setenv("RENDER_ENGINE_MAX_SESSIONS", "9")
	t.Setenv("RENDER_ENGINE_TIMEOUT", "5s")
	t.Setenv("PRIMARY_RENDERER_ENABLED", "false")
	t.Setenv("RENDER_ENGINE_ACQUIRE_TIMEOUT", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "http://engine:3000", cfg.Engine.URL)
	assert.Equal(t, 9, cfg.Engine.MaxSessions)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.False(t, cfg.Engine.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Engine.AcquireTimeout, "invalid values fall back to defaults")
}

func TestLoadBranding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "branding.yaml")
	content := []byte("companies:\n  ehl:\n    name: Eastern Home Limited\n    logo: assets/ehl.png\n  EHI:\n    name: Eastern Home Industries\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	b, err := LoadBranding(path)
	require.NoError(t, err)

	assert.Equal(t, "Eastern Home Limited", b.Names()["EHL"])
	assert.Equal(t, "assets/ehl.png", b.Logos()["EHL"])
	_, hasLogo := b.Logos()["EHI"]
	assert.False(t, hasLogo)
}

func TestLoadBranding_Errors(t *testing.T) {
	b, err := LoadBranding("")
	require.NoError(t, err)
	assert.Empty(t, b.Companies)

	_, err = LoadBranding(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("companies: [unterminated"), 0o644))
	_, err = LoadBranding(bad)
	assert.Error(t, err)
}
