// Package config loads pipeline configuration from an optional JSON file,
// with defaults for every key.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// CatalogConfig holds run-catalog database settings.
type CatalogConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Driver   string `json:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path     string `json:"path" mapstructure:"path"`     // sqlite file path
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// Load reads configuration from video360.cfg.json in configDir and sets
// default values. A missing config file is fine; a malformed one is not.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("outputDir", "./output_video360")

	viper.SetDefault("extract.distanceInterval", 20.0)
	viper.SetDefault("extract.fallbackIntervalSec", 1.0)
	viper.SetDefault("extract.jpegQuality", 95)

	viper.SetDefault("detect.model", "yolo11s")
	viper.SetDefault("detect.confidence", 0.25)
	viper.SetDefault("detect.radius", 10.0)
	viper.SetDefault("detect.saveCrops", true)

	viper.SetDefault("export.writer", "")
	viper.SetDefault("export.crs", "EPSG:4326")

	viper.SetDefault("catalog.enabled", false)
	viper.SetDefault("catalog.driver", "sqlite")
	viper.SetDefault("catalog.path", "")
	viper.SetDefault("catalog.host", "localhost")
	viper.SetDefault("catalog.port", "5432")
	viper.SetDefault("catalog.username", "postgres")
	viper.SetDefault("catalog.password", "postgres")
	viper.SetDefault("catalog.database", "video360")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "video360")
	viper.SetDefault("influx.bucket", "video360_runs")

	viper.SetConfigName("video360.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil // defaults only
		}
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

// Catalog returns the run-catalog settings.
func Catalog() CatalogConfig {
	var cfg CatalogConfig
	if err := viper.UnmarshalKey("catalog", &cfg); err != nil {
		return CatalogConfig{}
	}
	return cfg
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
