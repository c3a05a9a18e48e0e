// Package instance names the running process in logs and lock ownership.
package instance

import (
	"os"

	"github.com/angelmondragon/shopeazy-backend/pkg/env"
)

// GetID returns SHOPEAZY_INSTANCE_ID, falling back to the hostname.
func GetID() string {
	if id := env.Get("SHOPEAZY_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
