package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, StorageDriverLocal, cfg.StorageDriver)
	require.Equal(t, defaultTransformWorkers, cfg.TransformWorkers)
	require.Equal(t, defaultAITimeout, cfg.AITimeout)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TRANSFORM_WORKERS", "9")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example/media/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9, cfg.TransformWorkers)
	require.Equal(t, 5*time.Second, cfg.AITimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, "https://cdn.example/media", cfg.PublicBaseURL)
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TRANSFORM_QUEUE_SIZE", "lots")
	t.Setenv("TRANSFORM_WORKERS", "-2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, defaultTransformQueueSize, cfg.TransformQueueSize)
	require.Equal(t, defaultTransformWorkers, cfg.TransformWorkers)
}

func TestLoadConfigStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "s3")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("S3_BUCKET", "images")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StorageDriverS3, cfg.StorageDriver)

	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err = LoadConfig()
	require.Error(t, err)
}
