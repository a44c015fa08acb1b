package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

const (
	defaultPort               = "8080"
	defaultTransformWorkers   = 4
	defaultTransformQueueSize = 64
	defaultMaxUploadSize      = 20 << 20
	defaultAITimeout          = 60 * time.Second
)

type Config struct {
	Port string

	// database path (sqlite)
	DatabasePath string

	// media storage configuration
	StorageDriver    string // local or s3
	MediaStoragePath string // root for local assets (originals, variants)
	PublicBaseURL    string // prefix for URLs of locally stored assets
	S3Bucket         string
	S3Region         string
	S3PublicBaseURL  string // empty means presigned URLs

	// external AI inference service
	AIBaseURL string
	AIAPIKey  string
	AITimeout time.Duration

	// HS256 secret shared with the identity provider
	JWTSecret string

	AllowedOrigins []string

	// worker settings
	TransformWorkers   int
	TransformQueueSize int

	MaxUploadSize int64

	// event fan-out; empty disables AMQP
	AMQPURL string

	LogLevel  string
	LogFormat string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", defaultPort)
	v.SetDefault("DATABASE_PATH", "imagestudio.db")
	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:"+defaultPort+"/media")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	return v
}

func getIntOrDefault(v *viper.Viper, key string, defaultVal int) int {
	valStr := v.GetString(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		logrus.Warnf("Invalid %s '%s'. Using default %d. Error: %v", key, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getDurationOrDefault(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	valStr := v.GetString(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		logrus.Warnf("Invalid %s '%s'. Using default %s. Error: %v", key, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	v := newViper()

	mediaStorage := v.GetString("MEDIA_STORAGE_PATH")
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	driver := strings.ToLower(v.GetString("STORAGE_DRIVER"))
	switch driver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if v.GetString("S3_BUCKET") == "" {
			return Config{}, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER is %q", StorageDriverS3)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}

	cfg := Config{
		Port:               v.GetString("PORT"),
		DatabasePath:       v.GetString("DATABASE_PATH"),
		StorageDriver:      driver,
		MediaStoragePath:   absMediaStorage,
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Region:           v.GetString("S3_REGION"),
		S3PublicBaseURL:    strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
		AIBaseURL:          strings.TrimRight(v.GetString("AI_API_URL"), "/"),
		AIAPIKey:           v.GetString("AI_API_KEY"),
		AITimeout:          getDurationOrDefault(v, "AI_TIMEOUT", defaultAITimeout),
		JWTSecret:          v.GetString("JWT_SECRET"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		TransformWorkers:   getIntOrDefault(v, "TRANSFORM_WORKERS", defaultTransformWorkers),
		TransformQueueSize: getIntOrDefault(v, "TRANSFORM_QUEUE_SIZE", defaultTransformQueueSize),
		MaxUploadSize:      int64(getIntOrDefault(v, "MAX_UPLOAD_SIZE", defaultMaxUploadSize)),
		AMQPURL:            v.GetString("AMQP_URL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

// ConfigureLogging applies the level and formatter to the standard logrus logger.
func (c Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
