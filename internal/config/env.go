package config

import (
	"os"
	"strconv"
	"strings"
)

// envPrefix is prepended to every environment variable key.
const envPrefix = "STOCKAGGR_"

// applyEnv overlays environment variables on top of the file configuration.
// Only deployment-sensitive values are overridable; the source table itself
// lives in the database and is managed through the admin API.
func (c *Config) applyEnv() {
	c.Database.Host = envString("DB_HOST", c.Database.Host)
	c.Database.Port = envInt("DB_PORT", c.Database.Port)
	c.Database.User = envString("DB_USER", c.Database.User)
	c.Database.Password = envString("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = envString("DB_NAME", c.Database.DBName)

	c.Redis.Addr = envString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envString("REDIS_PASSWORD", c.Redis.Password)

	c.JWT.SecretKey = envString("JWT_SECRET", c.JWT.SecretKey)
	c.Admin.Username = envString("ADMIN_USER", c.Admin.Username)
	c.Admin.PasswordHash = envString("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)

	c.DataSource.Bridge.APIKey = envString("BRIDGE_API_KEY", c.DataSource.Bridge.APIKey)
	c.DataSource.Bridge.APISecret = envString("BRIDGE_API_SECRET", c.DataSource.Bridge.APISecret)

	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
}

// envString gets a string environment variable
func envString(key, defaultValue string) string {
	value := os.Getenv(envPrefix + strings.ToUpper(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// envInt gets an integer environment variable
func envInt(key string, defaultValue int) int {
	value := envString(key, "")
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}
