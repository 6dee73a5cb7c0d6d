package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URL", "postgres://localhost/bridge")
	t.Setenv("CRM_API_KEY", "key-123")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://rest.gohighlevel.com", cfg.CRMBaseURL)
	assert.False(t, cfg.VerifySignatures)
}

func TestLoad_MissingDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("CRM_API_KEY", "key-123")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_VerifyRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ZOOM_VERIFY_SIGNATURES", "true")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("ZOOM_SECRET_TOKEN", "shhh")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.VerifySignatures)
}
