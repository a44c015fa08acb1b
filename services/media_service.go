package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/events"
	"github.com/camden-git/imagestudio/media"
	"github.com/camden-git/imagestudio/metrics"
	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
)

const (
	UploadSourceFile = "file"
	UploadSourceURL  = "url"
	UploadSourceAI   = "ai"
)

// MediaService stores originals and registers them as images.
type MediaService struct {
	Images        repository.ImageRepositoryInterface
	Store         media.Store
	AI            AIClient
	Publisher     events.Publisher
	Metrics       *metrics.Metrics
	MaxUploadSize int64
	HTTPClient    *http.Client

	log *logrus.Entry
}

func NewMediaService(
	images repository.ImageRepositoryInterface,
	store media.Store,
	aiClient AIClient,
	publisher events.Publisher,
	m *metrics.Metrics,
	maxUploadSize int64,
) *MediaService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &MediaService{
		Images:        images,
		Store:         store,
		AI:            aiClient,
		Publisher:     publisher,
		Metrics:       m,
		MaxUploadSize: maxUploadSize,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		log:           logrus.WithField("component", "media"),
	}
}

// Upload stores r as a new original owned by userID.
func (s *MediaService) Upload(ctx context.Context, userID string, r io.Reader) (*models.Image, error) {
	data, err := s.readLimited(r)
	if err != nil {
		return nil, err
	}
	return s.storeOriginal(ctx, userID, data, media.AssetTypeOriginal, UploadSourceFile)
}

// UploadFromURL downloads rawURL and stores it as a new original.
func (s *MediaService) UploadFromURL(ctx context.Context, userID, rawURL string) (*models.Image, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalidInput("url must be an absolute http or https URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Op: "fetch", Err: fmt.Errorf("status %d from %s", resp.StatusCode, u.Host)}
	}

	data, err := s.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return s.storeOriginal(ctx, userID, data, media.AssetTypeOriginal, UploadSourceURL)
}

// Delete removes a stored object owned by userID and, when it is the original
// of an image, the image record too. Keys without an image record are owned
// through their path: the user segment of originals, or the image of a variant.
func (s *MediaService) Delete(ctx context.Context, userID, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return invalidInput("publicId is required")
	}

	img, err := s.Images.GetByPublicID(publicID)
	switch {
	case err == nil:
		if img.UserID != userID {
			return fmt.Errorf("%w: %s belongs to another user", ErrForbidden, publicID)
		}
	case errors.Is(err, ErrNotFound):
		img = nil
		if err := s.checkKeyOwner(userID, publicID); err != nil {
			return err
		}
	default:
		return err
	}

	if err := s.Store.Delete(ctx, publicID); err != nil {
		return err
	}
	if img == nil {
		return nil
	}
	if err := s.Images.Delete(img.ID); err != nil {
		return err
	}

	e := events.New(events.ImageDeleted)
	e.ImageID = img.ID
	_ = s.Publisher.Publish(ctx, e)
	return nil
}

func (s *MediaService) checkKeyOwner(userID, publicID string) error {
	parts := strings.SplitN(publicID, "/", 3)
	if len(parts) < 3 {
		return fmt.Errorf("%w: %s", ErrForbidden, publicID)
	}
	owner := parts[1]
	switch media.AssetType(parts[0]) {
	case media.AssetTypeOriginal, media.AssetTypeGenerated, media.AssetTypeNoBackground:
	case media.AssetTypeVariant:
		img, err := s.Images.GetByID(parts[1])
		if err != nil {
			return wrapLookup(err, "image", parts[1])
		}
		owner = img.UserID
	default:
		return fmt.Errorf("%w: %s", ErrForbidden, publicID)
	}
	if owner != userID {
		return fmt.Errorf("%w: %s belongs to another user", ErrForbidden, publicID)
	}
	return nil
}

// RemoveBackground runs the image through the AI service and stores the
// result as a new image.
func (s *MediaService) RemoveBackground(ctx context.Context, userID, imageID string) (*models.Image, error) {
	img, err := s.Images.GetByID(imageID)
	if err != nil {
		return nil, wrapLookup(err, "image", imageID)
	}

	rc, err := s.Store.Open(ctx, img.PublicID)
	if err != nil {
		return nil, fmt.Errorf("failed to open original %s: %w", img.PublicID, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read original %s: %w", img.PublicID, err)
	}

	out, err := s.AI.RemoveBackground(ctx, data)
	if err != nil {
		return nil, &UpstreamError{Op: "remove-background", Err: err}
	}
	return s.storeOriginal(ctx, userID, out, media.AssetTypeNoBackground, UploadSourceAI)
}

// Generate creates an image from prompt and stores it.
func (s *MediaService) Generate(ctx context.Context, userID, prompt string) (*models.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, invalidInput("prompt is required")
	}
	out, err := s.AI.Generate(ctx, prompt)
	if err != nil {
		return nil, &UpstreamError{Op: "generate", Err: err}
	}
	return s.storeOriginal(ctx, userID, out, media.AssetTypeGenerated, UploadSourceAI)
}

func (s *MediaService) readLimited(r io.Reader) ([]byte, error) {
	if s.MaxUploadSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.MaxUploadSize {
		return nil, invalidInput("file exceeds the %d byte limit", s.MaxUploadSize)
	}
	return data, nil
}

func (s *MediaService) storeOriginal(ctx context.Context, userID string, data []byte, assetType media.AssetType, source string) (*models.Image, error) {
	if len(data) == 0 {
		return nil, invalidInput("file is empty")
	}
	meta, err := media.ExtractMetadata(data)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, invalidInput("%v", err)
		}
		return nil, invalidInput("could not read image: %v", err)
	}

	ext := "." + meta.Format
	if meta.Format == "jpeg" {
		ext = ".jpg"
	}
	key := media.Key(assetType, userID, uuid.NewString()+ext)
	originalURL, err := s.Store.Save(ctx, key, meta.ContentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	img := &models.Image{
		UserID:      userID,
		PublicID:    key,
		OriginalURL: originalURL,
		Size:        meta.Size,
		Format:      meta.Format,
		Width:       meta.Width,
		Height:      meta.Height,
		CameraMake:  meta.CameraMake,
		CameraModel: meta.CameraModel,
		TakenAt:     meta.TakenAt,
	}
	if err := s.Images.Create(img); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.WithError(delErr).Warnf("failed to remove orphaned upload %s", key)
		}
		return nil, err
	}

	s.Metrics.ObserveUpload(source)
	e := events.New(events.ImageUploaded)
	e.ImageID = img.ID
	e.URL = img.OriginalURL
	_ = s.Publisher.Publish(ctx, e)

	s.log.WithFields(logrus.Fields{"image": img.ID, "source": source}).Infof("stored %s (%dx%d)", key, img.Width, img.Height)
	return img, nil
}
