package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/degree-audit-backend/internal/audit"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUDIT_CACHE_TTL_MINUTES", "not-a-number")
	t.Setenv("REQUIREMENTS_SOURCE", "testdata/requirements.csv")
	t.Setenv("CONNECT_ATTEMPTS", "3")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.AuditCacheTTL)
	assert.Equal(t, "testdata/requirements.csv", cfg.RequirementsSource)
	assert.Equal(t, 3, cfg.ConnectAttempts)
}

func TestLoadAuditConfigDefaults(t *testing.T) {
	cfg, err := LoadAuditConfig("")
	require.NoError(t, err)
	assert.Equal(t, audit.DefaultConfig().TitleWindow, cfg.TitleWindow)
	assert.Len(t, cfg.ExclusionStages, 1)

	cfg, err = LoadAuditConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "DS_BS", cfg.FallbackDegreeKey)
}

func TestLoadAuditConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	yml := `
equivalences:
  MATH 140: [MATH 140E]
rows:
  title_window: 80
exclusion:
  reflow_wrapped_lines: false
degrees:
  dispatch:
    - keyword: data science
      key: DS_BS
  fallback_key: CMPSC_BS
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := LoadAuditConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.TitleWindow)
	assert.Equal(t, 6.0, cfg.MaxUnits)
	assert.Empty(t, cfg.ExclusionStages)
	assert.Equal(t, []audit.DispatchRule{{Keyword: "data science", DegreeKey: "DS_BS"}}, cfg.DispatchRules)
	assert.Equal(t, "CMPSC_BS", cfg.FallbackDegreeKey)
	assert.Contains(t, cfg.Equivalences, "CMPSC 121")
	assert.Equal(t, []string{"MATH 140E"}, cfg.Equivalences["MATH 140"])
}

func TestLoadAuditConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("totals:\n  min_required: 200\n"), 0o600))

	_, err := LoadAuditConfig(path)
	assert.ErrorContains(t, err, "invalid audit config")

	require.NoError(t, os.WriteFile(path, []byte("rows: [1, 2"), 0o600))
	_, err = LoadAuditConfig(path)
	assert.ErrorContains(t, err, "failed to parse audit config")
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "audit:abc:degree:auto:v:3f2a", CacheKey.AuditResultKey("abc", "", "3f2a"))
	assert.Equal(t, "audit:abc:degree:CMPSC_BS:v:3f2a", CacheKey.AuditResultKey("abc", "CMPSC_BS", "3f2a"))
}
