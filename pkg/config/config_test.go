package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresSecretsInRelease(t *testing.T) {
	cfg := Default()
	cfg.JWTSecret = ""
	cfg.SessionSecret = ""
	require.NoError(t, cfg.Validate())

	cfg.Mode = "release"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	cfg.JWTSecret = "k1"
	cfg.SessionSecret = "k2"
	assert.NoError(t, cfg.Validate())
}

func TestLoadLeavesJWTSecretUnsetWithoutEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MODE", "release")
	require.NoError(t, Load())
	assert.Empty(t, GlobalConfig.JWTSecret)
	assert.Error(t, GlobalConfig.Validate())
}
