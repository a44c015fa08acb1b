package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrAssetNotFound is returned by Open when the key does not exist.
var ErrAssetNotFound = errors.New("asset not found")

// Store defines the interface for saving, retrieving, and deleting media assets
type Store interface {
	// Save stores data under key and returns the public URL of the asset
	Save(ctx context.Context, key string, contentType string, data io.Reader) (string, error)
	// Open retrieves a reader for an asset
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an asset; deleting a missing asset is not an error
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key
	URL(ctx context.Context, key string) (string, error)
}

var storeLog = logrus.WithField("component", "media.store")

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath      string // absolute path to the MEDIA_STORAGE_PATH
	publicBaseURL string // e.g. http://localhost:8080/media
}

// NewLocalStorage creates a new local filesystem store
func NewLocalStorage(basePath, publicBaseURL string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	storeLog.Infof("Initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{
		basePath:      absBasePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// BasePath returns the absolute storage root.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Save writes data to basePath/key, creating intermediate directories
func (ls *LocalStorage) Save(ctx context.Context, key string, contentType string, data io.Reader) (string, error) {
	fullSavePath, err := ls.GetFullPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullSavePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create sub-directory for '%s': %w", key, err)
	}

	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, data)
	if err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}

	storeLog.Debugf("Saved asset to %s", fullSavePath)
	return ls.URL(ctx, key)
}

func (ls *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: '%s'", ErrAssetNotFound, key)
		}
		return nil, fmt.Errorf("failed to open asset '%s': %w", key, err)
	}
	return file, nil
}

// Delete removes an asset file
func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) { // Ignore "not exist" errors
		return fmt.Errorf("failed to delete asset '%s': %w", key, err)
	}
	if err == nil {
		storeLog.Debugf("Deleted asset %s", fullPath)
	}
	return nil
}

func (ls *LocalStorage) URL(_ context.Context, key string) (string, error) {
	if _, err := ls.GetFullPath(key); err != nil {
		return "", err
	}
	segments := strings.Split(filepath.ToSlash(filepath.Clean(key)), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return ls.publicBaseURL + "/" + strings.Join(segments, "/"), nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("invalid path: empty asset key")
	}
	// clean the relative path first to prevent simple traversal tricks
	cleanRelativePath := filepath.Clean(filepath.FromSlash(key))

	fullPath := filepath.Join(ls.basePath, cleanRelativePath)

	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", key, err)
	}

	if !strings.HasPrefix(absFullPath, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", key)
	}

	return absFullPath, nil
}
