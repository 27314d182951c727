package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// Config is built once at startup and passed into component constructors.
// Nothing else in the tree reads the environment (GCP credential discovery
// excepted, which follows the standard GOOGLE_APPLICATION_CREDENTIALS
// convention).
type Config struct {
	StorageDir string
	OutputDir  string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ImageModel     string
	ImageSize      string
	ImageQuality   string
	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	MaxAttempts int
	RateLimit   time.Duration

	OCRLanguages []string

	MinImageBytes   int64
	MaxImageBytes   int64
	MinImageDim     int
	SquareTolerance float64

	GridCols    int
	GridRows    int
	CellSize    int
	Margin      int
	CellPadding int
	FontPath    string
}

// ConfigError is fatal at startup; the process must exit non-zero before any
// generation begins.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

var imageSizes = []string{"256x256", "512x512", "1024x1024", "1024x1536", "1536x1024", "1024x1792", "1792x1024"}
var imageQualities = []string{"low", "medium", "high", "standard", "hd", "auto"}

// Load reads every recognized option, applying documented defaults. Enum
// options with an unrecognized value fall back to their default with a
// warning, never an error.
func Load(log *logger.Logger) Config {
	slog := log.With("service", "Config")

	return Config{
		StorageDir: getEnv(slog, "STORAGE_PATH", "./generated_images"),
		OutputDir:  getEnv(slog, "POSTER_OUTPUT_PATH", "./output"),

		OpenAIAPIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:  getEnv(slog, "OPENAI_BASE_URL", "https://api.openai.com"),
		ImageModel:     getEnv(slog, "OPENAI_IMAGE_MODEL", "gpt-image-1"),
		ImageSize:      getEnum(slog, "IMAGE_SIZE", "1024x1024", imageSizes),
		ImageQuality:   getEnum(slog, "IMAGE_QUALITY", "high", imageQualities),
		HTTPTimeout:    time.Duration(getEnvAsInt(slog, "OPENAI_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPMaxRetries: getEnvAsInt(slog, "OPENAI_MAX_RETRIES", 4),

		MaxAttempts: getEnvAsInt(slog, "MAX_GENERATION_ATTEMPTS", 3),
		RateLimit:   time.Duration(getEnvAsInt(slog, "RATE_LIMIT_MS", 2000)) * time.Millisecond,

		OCRLanguages: splitList(getEnv(slog, "OCR_LANGUAGES", "ru,en")),

		MinImageBytes:   int64(getEnvAsInt(slog, "MIN_IMAGE_BYTES", 10000)),
		MaxImageBytes:   int64(getEnvAsInt(slog, "MAX_IMAGE_BYTES", 5000000)),
		MinImageDim:     getEnvAsInt(slog, "MIN_IMAGE_DIM", 100),
		SquareTolerance: 0.2,

		GridCols:    getEnvAsInt(slog, "POSTER_COLS", 6),
		GridRows:    getEnvAsInt(slog, "POSTER_ROWS", 6),
		CellSize:    getEnvAsInt(slog, "CELL_SIZE", 400),
		Margin:      getEnvAsInt(slog, "POSTER_MARGIN", 50),
		CellPadding: getEnvAsInt(slog, "CELL_PADDING", 10),
		FontPath:    getEnv(slog, "POSTER_FONT", ""),
	}
}

// RequireAPIKey is called by commands that will invoke the image backend.
func (c Config) RequireAPIKey() error {
	if c.OpenAIAPIKey == "" {
		return &ConfigError{Key: "OPENAI_API_KEY", Reason: "required but not set"}
	}
	return nil
}

func getEnv(log *logger.Logger, key, defaultVal string) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		log.Debug("env not set, using default", "env_var", key, "default", defaultVal)
		return defaultVal
	}
	return strings.TrimSpace(val)
}

func getEnvAsInt(log *logger.Logger, key string, defaultVal int) int {
	valStr, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(valStr) == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		log.Warn("env could not be parsed as int, using default",
			"env_var", key, "provided", valStr, "default", defaultVal)
		return defaultVal
	}
	return i
}

func getEnum(log *logger.Logger, key, defaultVal string, allowed []string) string {
	val := getEnv(log, key, defaultVal)
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	log.Warn("unrecognized value, falling back to default",
		"env_var", key, "provided", val, "default", defaultVal, "allowed", strings.Join(allowed, ","))
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
