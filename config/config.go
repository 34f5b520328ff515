package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ModeLocalWhisper = "local-whisper"

	// DefaultMaxUploadBytes is 500 MiB.
	DefaultMaxUploadBytes int64 = 500 << 20

	// EngineCount is the number of transcription engines tried per request.
	EngineCount = 2
)

type Config struct {
	// Server settings
	ServerPort      string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Application paths
	UploadDir string
	TempDir   string
	LogDir    string
	StaticDir string
	LogLevel  string

	MaxUploadBytes int64

	Engine EngineConfig

	RateLimit RateLimitConfig
	CORS      CORSConfig

	// Optional collaborators, disabled when empty
	CacheDBPath string
	Spaces      SpacesConfig
}

type EngineConfig struct {
	FFmpegPath        string
	PythonPath        string
	WhisperPath       string
	Model             string
	Language          string
	BeamSize          int
	ExtractTimeout    time.Duration
	TranscribeTimeout time.Duration
}

// MaxRunDuration is the longest a request can spend in external commands:
// one extraction plus every engine running to its timeout.
func (e EngineConfig) MaxRunDuration() time.Duration {
	return e.ExtractTimeout + EngineCount*e.TranscribeTimeout
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
}

type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// Enabled reports whether a bucket was configured.
func (s SpacesConfig) Enabled() bool {
	return s.Bucket != ""
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ensureDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads the environment without validating or touching disk.
func LoadFromEnv() *Config {
	tempRoot := filepath.Join(os.TempDir(), "vid-text")

	return &Config{
		ServerPort:      GetEnv("PORT", "3000"),
		Mode:            GetEnv("MODE", ModeLocalWhisper),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 5*time.Minute),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 90*time.Minute),
		IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		UploadDir: GetEnv("UPLOAD_DIR", filepath.Join(tempRoot, "uploads")),
		TempDir:   GetEnv("TEMP_DIR", tempRoot),
		LogDir:    GetEnv("LOG_DIR", ""),
		StaticDir: GetEnv("STATIC_DIR", "./static"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),

		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),

		Engine: EngineConfig{
			FFmpegPath:        GetEnv("FFMPEG_PATH", "ffmpeg"),
			PythonPath:        GetEnv("PYTHON_PATH", "python3"),
			WhisperPath:       GetEnv("WHISPER_PATH", "whisper"),
			Model:             GetEnv("WHISPER_MODEL", "base"),
			Language:          GetEnv("WHISPER_LANGUAGE", "en"),
			BeamSize:          getEnvAsInt("WHISPER_BEAM_SIZE", 5),
			ExtractTimeout:    getEnvAsDuration("EXTRACT_TIMEOUT", 10*time.Minute),
			TranscribeTimeout: getEnvAsDuration("TRANSCRIBE_TIMEOUT", 30*time.Minute),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 5),
		},

		CORS: CORSConfig{
			Enabled:        getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
		},

		CacheDBPath: GetEnv("CACHE_DB_PATH", ""),
		Spaces: SpacesConfig{
			AccessKey: GetEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: GetEnv("SPACES_SECRET_KEY", ""),
			Region:    GetEnv("SPACES_REGION", "us-east-1"),
			Endpoint:  GetEnv("SPACES_ENDPOINT", ""),
			Bucket:    GetEnv("SPACES_BUCKET", ""),
		},
	}
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.Mode != ModeLocalWhisper {
		return errors.Errorf("unsupported mode %q", c.Mode)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if c.Engine.ExtractTimeout <= 0 {
		return errors.New("extract timeout must be greater than 0")
	}
	if c.Engine.TranscribeTimeout <= 0 {
		return errors.New("transcribe timeout must be greater than 0")
	}
	if c.WriteTimeout <= c.Engine.MaxRunDuration() {
		return errors.Errorf("write timeout %s must exceed the worst-case run of %s", c.WriteTimeout, c.Engine.MaxRunDuration())
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be greater than 0")
	}
	if c.Engine.BeamSize <= 0 {
		return errors.New("beam size must be greater than 0")
	}
	if c.UploadDir == "" || c.TempDir == "" {
		return errors.New("upload and temp directories are required")
	}
	if c.Spaces.Enabled() && (c.Spaces.AccessKey == "" || c.Spaces.SecretKey == "") {
		return errors.New("spaces credentials are required when SPACES_BUCKET is set")
	}
	return nil
}

func (c *Config) ensureDirs() error {
	paths := []struct {
		path string
		name string
	}{
		{c.UploadDir, "upload directory"},
		{c.TempDir, "temp directory"},
	}
	if c.LogDir != "" {
		paths = append(paths, struct {
			path string
			name string
		}{c.LogDir, "log directory"})
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}
	return nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		warnInvalid(key, value, defaultValue, "Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue interface{}, msg string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warn(msg)
}
