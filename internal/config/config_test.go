package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, 20.0, GetFloat("extract.distanceInterval"))
	assert.Equal(t, 1.0, GetFloat("extract.fallbackIntervalSec"))
	assert.Equal(t, 95, GetInt("extract.jpegQuality"))
	assert.Equal(t, "yolo11s", GetString("detect.model"))
	assert.Equal(t, 0.25, GetFloat("detect.confidence"))
	assert.Equal(t, 10.0, GetFloat("detect.radius"))
	assert.True(t, GetBool("detect.saveCrops"))
	assert.False(t, GetBool("catalog.enabled"))
	assert.False(t, GetBool("influx.enabled"))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
  "logLevel": "debug",
  "extract": {"distanceInterval": 35.5},
  "detect": {"saveCrops": false},
  "catalog": {"enabled": true, "driver": "postgres", "database": "runs"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video360.cfg.json"), []byte(cfg), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, 35.5, GetFloat("extract.distanceInterval"))
	assert.False(t, GetBool("detect.saveCrops"))
	// untouched keys keep their defaults
	assert.Equal(t, 0.25, GetFloat("detect.confidence"))

	cat := Catalog()
	assert.True(t, cat.Enabled)
	assert.Equal(t, "postgres", cat.Driver)
	assert.Equal(t, "runs", cat.Database)
	assert.Equal(t, "localhost", cat.Host)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video360.cfg.json"), []byte("{not json"), 0644))

	assert.Error(t, Load(dir))
}
