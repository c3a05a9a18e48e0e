package env

import (
	"os"
	"strings"
)

// Get reads key from the process environment. Unset or blank values yield fallback.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
