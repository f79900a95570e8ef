package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (THREADLINE_API_BASE_URL, ...)
const EnvPrefix = "THREADLINE"

var configDir string
var configFilePath string
var credentialsPath string

// getConfigDir returns platform-specific config directory
func getConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		// Windows: %LOCALAPPDATA%\threadline
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "threadline"), nil
	}

	// Unix-like (macOS, Linux): ~/.config/threadline
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "threadline"), nil
}

// getSystemConfigPaths returns platform-specific system config paths
func getSystemConfigPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join(os.Getenv("ProgramFiles"), "Threadline", "config.toml")}
	}

	return []string{
		"/etc/threadline/config.toml",
		"/usr/local/etc/threadline/config.toml",
	}
}

// Init initializes the configuration
func Init(configPath string) error {
	var err error
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		configDir, err = getConfigDir()
		if err != nil {
			return err
		}
		configFilePath = filepath.Join(configDir, "config.toml")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	credentialsPath = filepath.Join(configDir, "credentials")

	// A .env next to the working directory may carry THREADLINE_BACKEND_URL.
	// Existing process variables win.
	_ = godotenv.Load()

	viper.Reset()
	viper.SetConfigType("toml")

	setDefaults()

	// System config is the foundation, user config overrides it
	for _, sysConfigPath := range getSystemConfigPaths() {
		if _, err := os.Stat(sysConfigPath); err == nil {
			viper.SetConfigFile(sysConfigPath)
			_ = viper.ReadInConfig()
			break
		}
	}

	viper.SetConfigFile(configFilePath)
	_ = viper.MergeInConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("api.base_url", EnvPrefix+"_BACKEND_URL", EnvPrefix+"_API_BASE_URL")

	return nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:5000/api")
	viper.SetDefault("api.timeout", 0)
	viper.SetDefault("output.format", "text")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", filepath.Join(configDir, "threadline.log"))

	viper.SetDefault("cache.stale_seconds", 30)
	viper.SetDefault("cache.scoped_feed_keys", false)
	viper.SetDefault("cache.persist", "file")
	viper.SetDefault("cache.dir", filepath.Join(configDir, "cache"))
	viper.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	viper.SetDefault("cache.ttl_seconds", 3600)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetString returns a string configuration value
func GetString(key string) string {
	value := viper.GetString(key)
	if key == "cache.dir" || key == "log.file" {
		return expandPath(value)
	}
	return value
}

// GetInt returns an int configuration value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool configuration value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set overrides a value for the lifetime of the process without touching the config file
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// SetString sets a string configuration value and persists it
func SetString(key string, value string) error {
	viper.Set(key, value)
	return viper.WriteConfigAs(configFilePath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	return configDir
}

// GetConfigFilePath returns the user config file path
func GetConfigFilePath() string {
	return configFilePath
}

// GetCredentialsPath returns the path to the credentials file
func GetCredentialsPath() string {
	return credentialsPath
}
