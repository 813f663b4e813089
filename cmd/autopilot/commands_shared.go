package main

import (
	"os"
	"strings"
)

const defaultConfigName = "autopilot.yaml"

// defaultConfigPath resolves the configuration file path: the
// AUTOPILOT_CONFIG environment variable if set, otherwise autopilot.yaml
// in the working directory.
func defaultConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("AUTOPILOT_CONFIG")); v != "" {
		return v
	}
	return defaultConfigName
}
