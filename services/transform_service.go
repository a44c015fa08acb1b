// Package services orchestrates storage, pixel processing, the AI service and
// persistence for the HTTP layer.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/events"
	"github.com/camden-git/imagestudio/media"
	"github.com/camden-git/imagestudio/metrics"
	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/transform"
)

// DefaultHistoryLimit caps the variant history returned per image.
const DefaultHistoryLimit = 50

// AIClient is the subset of ai.Client the services call.
type AIClient interface {
	Upscale(ctx context.Context, img []byte, factor int) ([]byte, error)
	RemoveBackground(ctx context.Context, img []byte) ([]byte, error)
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Submitter runs a job with bounded concurrency and waits for it.
type Submitter interface {
	Submit(ctx context.Context, run func(ctx context.Context) error) error
}

type TransformService struct {
	Images    repository.ImageRepositoryInterface
	Variants  repository.VariantRepositoryInterface
	Store     media.Store
	Processor *media.Processor
	AI        AIClient
	Pool      Submitter
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	log *logrus.Entry
}

func NewTransformService(
	images repository.ImageRepositoryInterface,
	variants repository.VariantRepositoryInterface,
	store media.Store,
	aiClient AIClient,
	pool Submitter,
	publisher events.Publisher,
	m *metrics.Metrics,
) *TransformService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TransformService{
		Images:    images,
		Variants:  variants,
		Store:     store,
		Processor: media.NewProcessor(),
		AI:        aiClient,
		Pool:      pool,
		Publisher: publisher,
		Metrics:   m,
		log:       logrus.WithField("component", "transform"),
	}
}

// VariantOptions is a stored variant's request, decoded for replay.
type VariantOptions struct {
	VariantID string            `json:"variantId"`
	ImageID   string            `json:"imageId"`
	Query     string            `json:"query"`
	Options   transform.Options `json:"options"`
}

// Transform validates q, renders the image and records a new variant. Every
// successful call writes a new record.
func (s *TransformService) Transform(ctx context.Context, imageID string, q transform.Query) (*models.TransformImage, error) {
	start := time.Now()
	opts, err := transform.Validate(q)
	if err != nil {
		s.Metrics.ObserveTransform(metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}
	return s.run(ctx, imageID, opts, start)
}

// Replay re-issues the request stored on a variant. The result is a new
// variant; the original record is left untouched.
func (s *TransformService) Replay(ctx context.Context, variantID string) (*models.TransformImage, error) {
	start := time.Now()
	v, err := s.Variants.GetByID(variantID)
	if err != nil {
		s.Metrics.ObserveTransform(outcomeFor(err), time.Since(start))
		return nil, wrapLookup(err, "variant", variantID)
	}
	opts, err := transform.Validate(transform.ParseQuery(v.Options))
	if err != nil {
		s.Metrics.ObserveTransform(metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}
	return s.run(ctx, v.ImageID, opts, start)
}

// History lists the variants of an image, newest first.
func (s *TransformService) History(_ context.Context, imageID string, limit int) ([]models.TransformImage, error) {
	if _, err := s.Images.GetByID(imageID); err != nil {
		return nil, wrapLookup(err, "image", imageID)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.Variants.ListByImageID(imageID, limit)
}

// Options returns the decoded request of a stored variant.
func (s *TransformService) Options(_ context.Context, variantID string) (*VariantOptions, error) {
	v, err := s.Variants.GetByID(variantID)
	if err != nil {
		return nil, wrapLookup(err, "variant", variantID)
	}
	opts := v.TransformOptions()
	return &VariantOptions{
		VariantID: v.ID,
		ImageID:   v.ImageID,
		Query:     transform.Encode(opts),
		Options:   opts,
	}, nil
}

func (s *TransformService) run(ctx context.Context, imageID string, opts transform.Options, start time.Time) (*models.TransformImage, error) {
	img, err := s.Images.GetByID(imageID)
	if err != nil {
		s.Metrics.ObserveTransform(outcomeFor(err), time.Since(start))
		return nil, wrapLookup(err, "image", imageID)
	}

	// claimed decides who reports the outcome: the job once it starts, or the
	// caller when the job is rejected or abandoned before it runs. A job that
	// outlives its caller still persists and announces its variant.
	var claimed atomic.Bool
	var variant *models.TransformImage
	err = s.Pool.Submit(ctx, func(ctx context.Context) error {
		if !claimed.CompareAndSwap(false, true) {
			return context.Canceled
		}
		v, renderErr := s.render(ctx, img, opts)
		if renderErr == nil {
			if err := s.Images.MarkTransformed(img.ID); err != nil {
				s.log.WithError(err).Warnf("failed to flag image %s as transformed", img.ID)
			}
		}
		s.publishOutcome(ctx, img.ID, opts, v, renderErr)
		variant = v
		return renderErr
	})
	if err != nil {
		if claimed.CompareAndSwap(false, true) {
			s.publishOutcome(ctx, img.ID, opts, nil, err)
		}
		s.Metrics.ObserveTransform(outcomeFor(err), time.Since(start))
		return nil, err
	}

	elapsed := time.Since(start)
	s.Metrics.ObserveTransform(metrics.OutcomeSuccess, elapsed)
	s.log.WithFields(logrus.Fields{
		"image":   img.ID,
		"variant": variant.ID,
		"options": variant.Options,
	}).Infof("transform completed in %s", elapsed)
	return variant, nil
}

func (s *TransformService) publishOutcome(ctx context.Context, imageID string, opts transform.Options, v *models.TransformImage, err error) {
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		failed := events.New(events.TransformFailed)
		failed.ImageID = imageID
		failed.Options = transform.Encode(opts)
		failed.Error = err.Error()
		_ = s.Publisher.Publish(ctx, failed)
		return
	}
	done := events.New(events.TransformCompleted)
	done.ImageID = imageID
	done.VariantID = v.ID
	done.URL = v.URL
	done.Options = v.Options
	_ = s.Publisher.Publish(ctx, done)
}

func (s *TransformService) render(ctx context.Context, img *models.Image, opts transform.Options) (*models.TransformImage, error) {
	rc, err := s.Store.Open(ctx, img.PublicID)
	if err != nil {
		return nil, fmt.Errorf("failed to open original %s: %w", img.PublicID, err)
	}
	src, _, err := media.DecodeImage(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}

	out, err := s.Processor.Apply(src, opts)
	if err != nil {
		return nil, err
	}

	if opts.Enhance != transform.EnhanceNone {
		if out, err = s.enhance(ctx, out, opts.Enhance.Factor()); err != nil {
			return nil, err
		}
	}

	data, err := media.EncodeBytes(out, opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}

	key := media.Key(media.AssetTypeVariant, img.ID, uuid.NewString()+opts.Format.Extension())
	url, err := s.Store.Save(ctx, key, opts.Format.ContentType(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store variant: %w", err)
	}

	v := models.NewTransformImage(img.ID, opts)
	v.ID = uuid.NewString()
	v.PublicID = key
	v.URL = url
	v.Width = out.Bounds().Dx()
	v.Height = out.Bounds().Dy()
	if err := s.Variants.Create(&v); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.WithError(delErr).Warnf("failed to remove orphaned variant %s", key)
		}
		return nil, err
	}
	return &v, nil
}

// enhance sends the processed image to the upscaler as PNG so no quality is
// lost before the final encode.
func (s *TransformService) enhance(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	if s.AI == nil {
		return nil, &UpstreamError{Op: "upscale", Err: errors.New("no AI client")}
	}
	payload, err := media.EncodeBytes(img, transform.FormatPNG, 0)
	if err != nil {
		return nil, err
	}
	upscaled, err := s.AI.Upscale(ctx, payload, factor)
	if err != nil {
		return nil, &UpstreamError{Op: "upscale", Err: err}
	}
	out, _, err := media.DecodeBytes(upscaled)
	if err != nil {
		return nil, &UpstreamError{Op: "upscale", Err: err}
	}
	return out, nil
}

func wrapLookup(err error, kind, id string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func outcomeFor(err error) string {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, transform.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrBusy):
		return metrics.OutcomeBusy
	case errors.As(err, &upstream):
		return metrics.OutcomeUpstream
	default:
		return metrics.OutcomeError
	}
}
