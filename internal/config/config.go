package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

type Config struct {
	Port            string
	StoreBackend    string
	MongoURI        string
	MongoDB         string
	UploadDir       string
	ImageBasePath   string
	LogLevel        string
	RequestTimeout  time.Duration
	CartRecentLimit int

	// EnvSource indica de dónde salieron las variables.
	EnvSource string
	// Warnings lista los valores inválidos reemplazados por su default.
	Warnings []string
}

func LoadConfig() *Config {
	// Solo cargar .env en desarrollo local
	source := "system environment"
	var warnings []string
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			warnings = append(warnings, fmt.Sprintf("error loading .env file: %v", err))
		} else {
			source = ".env file"
		}
	}

	cfg := FromLookup(os.LookupEnv)
	cfg.EnvSource = source
	cfg.Warnings = append(warnings, cfg.Warnings...)
	return cfg
}

// FromLookup arma la configuración con cualquier fuente de variables.
func FromLookup(lookup func(string) (string, bool)) *Config {
	env := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	cfg := &Config{
		Port:          env("PORT", "8080"),
		StoreBackend:  strings.ToLower(env("STORE_BACKEND", BackendMemory)),
		MongoURI:      env("MONGO_URI", ""),
		MongoDB:       env("MONGO_DB", "customShop"),
		UploadDir:     env("UPLOAD_DIR", "./uploads"),
		ImageBasePath: env("IMAGE_BASE_PATH", "/api/files/"),
		LogLevel:      strings.ToLower(env("LOG_LEVEL", "info")),
	}

	if cfg.StoreBackend != BackendMemory && cfg.StoreBackend != BackendMongo {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown STORE_BACKEND %q, using %s", cfg.StoreBackend, BackendMemory))
		cfg.StoreBackend = BackendMemory
	}
	if cfg.StoreBackend == BackendMongo && cfg.MongoURI == "" {
		cfg.Warnings = append(cfg.Warnings, "STORE_BACKEND is mongo but MONGO_URI is empty, using memory")
		cfg.StoreBackend = BackendMemory
	}
	if !strings.HasSuffix(cfg.ImageBasePath, "/") {
		cfg.ImageBasePath += "/"
	}

	cfg.RequestTimeout = 10 * time.Second
	if raw := env("REQUEST_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid REQUEST_TIMEOUT %q, using %s", raw, cfg.RequestTimeout))
		} else {
			cfg.RequestTimeout = d
		}
	}

	cfg.CartRecentLimit = 10
	if raw := env("CART_RECENT_LIMIT", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid CART_RECENT_LIMIT %q, using %d", raw, cfg.CartRecentLimit))
		} else {
			cfg.CartRecentLimit = n
		}
	}
	return cfg
}
