package api

import (
	"os"
	"strconv"
)

// Config holds everything the server needs to start, layered the way
// cmd/k8s-manager/main.go layers it: environment defaults, overridable
// by command-line flags.
type Config struct {
	Port           string
	Dev            bool
	DatabasePath   string
	KubeconfigPath string
}

// LoadConfigFromEnv reads configuration from the environment, applying
// defaults for anything unset. Callers (main.go) override individual
// fields with flag values afterward.
func LoadConfigFromEnv() Config {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		Dev:          getEnvBool("DEV", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/k8s-manager.db"),
	}
	cfg.KubeconfigPath = os.Getenv("KUBECONFIG")
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
