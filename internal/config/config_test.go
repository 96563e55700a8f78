package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg := FromLookup(lookupFrom(nil))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "customShop", cfg.MongoDB)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, "/api/files/", cfg.ImageBasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.CartRecentLimit)
	assert.Empty(t, cfg.Warnings)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg := FromLookup(lookupFrom(map[string]string{
		"PORT":              "9090",
		"STORE_BACKEND":     "Mongo",
		"MONGO_URI":         "mongodb://localhost:27017",
		"IMAGE_BASE_PATH":   "/files",
		"LOG_LEVEL":         "DEBUG",
		"REQUEST_TIMEOUT":   "2s",
		"CART_RECENT_LIMIT": "25",
	}))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, "/files/", cfg.ImageBasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 25, cfg.CartRecentLimit)
	assert.Empty(t, cfg.Warnings)
}

func TestFromLookupFallsBackOnInvalidValues(t *testing.T) {
	cfg := FromLookup(lookupFrom(map[string]string{
		"STORE_BACKEND":     "postgres",
		"REQUEST_TIMEOUT":   "soon",
		"CART_RECENT_LIMIT": "-3",
	}))

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.CartRecentLimit)
	assert.Len(t, cfg.Warnings, 3)
}

func TestMongoWithoutURIFallsBackToMemory(t *testing.T) {
	cfg := FromLookup(lookupFrom(map[string]string{"STORE_BACKEND": "mongo"}))

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Len(t, cfg.Warnings, 1)
}
