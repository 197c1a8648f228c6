package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	ApplyAliases(envAsMap)
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// aliases maps secret names as mounted by Azure Container Apps onto the
// variables the application reads.
var aliases = map[string]string{
	"database-url":            "DATABASE_URL",
	"jwt-secret":              "JWT_SECRET",
	"jwt-refresh-secret":      "JWT_REFRESH_SECRET",
	"jwt-expires-in":          "JWT_EXPIRES_IN",
	"jwt-refresh-expires-in":  "JWT_REFRESH_EXPIRES_IN",
	"admin-email":             "ADMIN_EMAIL",
	"admin-password":          "ADMIN_PASSWORD",
	"cors-origin":             "CORS_ORIGIN",
	"media-access-key-id":     "MEDIA_ACCESS_KEY_ID",
	"media-secret-access-key": "MEDIA_SECRET_ACCESS_KEY",
}

// ApplyAliases copies kebab-case keys onto their canonical names. A canonical
// key that is already set wins.
func ApplyAliases(config map[string]string) {
	for alias, canonical := range aliases {
		value, ok := config[alias]
		if !ok || value == "" {
			continue
		}
		if existing := config[canonical]; existing == "" {
			config[canonical] = value
		}
	}
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	s, ok := config[key]
	if !ok || s == "" {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return asBool
}

// GetDuration accepts Go duration syntax plus a "d" suffix for whole days.
func GetDuration(config map[string]string, key string, defaultValue time.Duration) time.Duration {
	s, ok := config[key]
	if !ok || s == "" {
		return defaultValue
	}

	d, err := ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetStrings splits a comma separated value, dropping empty entries.
func GetStrings(config map[string]string, key string, defaultValue []string) []string {
	s, ok := config[key]
	if !ok || strings.TrimSpace(s) == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
