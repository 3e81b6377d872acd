package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDefaultsDecodeSigningKeyAndLifetimes(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Len(t, cfg.JWT.SigningKey, 39)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, "auth-service", cfg.ServiceName)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, AuditConfig{Workers: 2, BufferSize: 256, MaxRetries: 2}, cfg.Audit)
}

func TestLifetimesAreMilliseconds(t *testing.T) {
	v := newTestViper()
	v.Set("JWT_ACCESS_TOKEN_EXPIRATION", 1500)
	v.Set("JWT_REFRESH_TOKEN_EXPIRATION", 86400000)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.JWT.AccessExpiration)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshExpiration)
}

func TestSigningKeyMustBeBase64(t *testing.T) {
	v := newTestViper()
	v.Set("JWT_SECRET", "not base64 !!")

	_, err := fromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base64")
}

func TestSigningKeyTooShort(t *testing.T) {
	v := newTestViper()
	v.Set("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := fromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestSplitAndTrimOrigins(t *testing.T) {
	v := newTestViper()
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsDotEnvOnceAndEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9191\nSERVICE_NAME=from-file\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if _, set := os.LookupEnv("PORT"); set {
		t.Skip("PORT already set in the environment")
	}
	t.Cleanup(func() { _ = os.Unsetenv("PORT") })
	t.Setenv("SERVICE_NAME", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "from-env", cfg.ServiceName)
}
