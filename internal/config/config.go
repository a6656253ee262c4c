package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	MapboxBaseURL     string
	MapboxAccessToken string
	DirectionsTimeout time.Duration
	DirectionsRetries int

	OverpassBaseURL string
	OverpassTimeout time.Duration

	// RouteFiles maps route id to the GeoJSON file carrying its geometry.
	RouteFiles map[string]string

	MinGapMeters         float64
	FallbackOffsetMeters float64
	GraphRadiusMeters    float64
	GraphCacheSize       int
	ReloadInterval       time.Duration

	RedisEnabled     bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheTTL         time.Duration
	CacheWarmOnStart bool

	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	RateLimitWhitelist []string
}

func Load() (*Config, error) {
	// Optional .env for local development; deployments set the environment
	// directly.
	_ = godotenv.Load()

	token := os.Getenv("MAPBOX_ACCESS_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("MAPBOX_ACCESS_TOKEN environment variable is required")
	}

	routeFiles, err := getRouteFilesEnv("ROUTE_FILES")
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		MapboxBaseURL:     getEnv("MAPBOX_BASE_URL", "https://api.mapbox.com/directions/v5/mapbox"),
		MapboxAccessToken: token,
		DirectionsTimeout: getDurationEnv("DIRECTIONS_TIMEOUT", 12*time.Second),
		DirectionsRetries: getIntEnv("DIRECTIONS_RETRIES", 1),

		OverpassBaseURL: getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout: getDurationEnv("OVERPASS_TIMEOUT", 60*time.Second),

		RouteFiles: routeFiles,

		MinGapMeters:         getFloatEnv("MIN_GAP_METERS", 10.0),
		FallbackOffsetMeters: getFloatEnv("FALLBACK_OFFSET_METERS", 15.0),
		GraphRadiusMeters:    getFloatEnv("GRAPH_RADIUS_METERS", 5000.0),
		GraphCacheSize:       getIntEnv("GRAPH_CACHE_SIZE", 16),
		ReloadInterval:       getDurationEnv("RELOAD_INTERVAL", 0),

		RedisEnabled:     getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getIntEnv("REDIS_DB", 0),
		CacheTTL:         getDurationEnv("CACHE_TTL", 24*time.Hour),
		CacheWarmOnStart: getBoolEnv("CACHE_WARM_ON_START", false),

		RateLimitPerWindow: getIntEnv("RATE_LIMIT_PER_WINDOW", 120),
		RateLimitWindow:    getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitWhitelist: getCSVEnv("RATE_LIMIT_WHITELIST"),
	}, nil
}

// getRouteFilesEnv parses "id=path,id=path" pairs. Falls back to the four
// bundled DRT lines when unset.
func getRouteFilesEnv(key string) (map[string]string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return map[string]string{
			"drt-1": "data/drt_1.geojson",
			"drt-2": "data/drt_2.geojson",
			"drt-3": "data/drt_3.geojson",
			"drt-4": "data/drt_4.geojson",
		}, nil
	}

	files := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, path, ok := strings.Cut(pair, "=")
		id, path = strings.TrimSpace(id), strings.TrimSpace(path)
		if !ok || id == "" || path == "" {
			return nil, fmt.Errorf("invalid %s entry %q: expected id=path", key, pair)
		}
		files[id] = path
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s is set but contains no id=path pairs", key)
	}
	return files, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
