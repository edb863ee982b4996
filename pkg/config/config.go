// Package config reads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadDotenv loads a .env file when present. Missing files are fine; the
// deployed environments set real variables.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on environment variables")
	}
}

func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Strings splits a comma-separated variable, e.g. a broker list.
func Strings(key, fallback string) []string {
	raw := String(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func Decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Printf("⚠️  Invalid decimal for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
