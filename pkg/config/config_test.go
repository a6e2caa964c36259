package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "geode",
		Password: "s3cret",
		Database: "geode_mappings",
		SSLMode:  "require",
	}

	got := cfg.ConnectionString()
	assert.True(t, strings.HasPrefix(got, "postgres://"), got)
	assert.Contains(t, got, "db.internal:5433")
	assert.Contains(t, got, "geode_mappings")
	assert.Contains(t, got, "sslmode=require")
}

func TestConnectionString_EscapesCredentials(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "geode",
		Password: "p@ss/word",
		Database: "geode_mappings",
		SSLMode:  "disable",
	}

	got := cfg.ConnectionString()
	assert.NotContains(t, got, "p@ss/word", "reserved characters must be escaped")
	assert.Contains(t, got, "p%40ss%2Fword")
}
