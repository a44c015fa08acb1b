package models

import (
	"encoding/json"
	"time"

	"github.com/camden-git/imagestudio/transform"
)

// TransformImage is one persisted result of the transform endpoint. Records
// are append-only: a new row is written for every successful transform.
type TransformImage struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ImageID  string `gorm:"index;not null;size:36" json:"imageId"`
	PublicID string `gorm:"uniqueIndex;not null" json:"publicId"`
	URL      string `gorm:"not null" json:"url"`

	Width  int `gorm:"not null" json:"width"`  // output dimensions
	Height int `gorm:"not null" json:"height"` // output dimensions

	Format    string `gorm:"not null" json:"format"`
	Fit       string `gorm:"not null" json:"fit"`
	Quality   int    `gorm:"not null" json:"quality"`
	Grayscale bool   `gorm:"not null;default:false" json:"grayscale"`
	Blur      int    `gorm:"not null;default:0" json:"blur"`
	Sharpen   bool   `gorm:"not null;default:false" json:"sharpen"`
	Rotate    int    `gorm:"not null;default:0" json:"rotate"`

	// all four set or all four null
	CropLeft   *int `gorm:"" json:"-"`
	CropTop    *int `gorm:"" json:"-"`
	CropWidth  *int `gorm:"" json:"-"`
	CropHeight *int `gorm:"" json:"-"`

	Enhance string `gorm:"not null;default:''" json:"enhance,omitempty"`

	// Options is the canonical query string that reproduces this variant.
	Options string `gorm:"not null" json:"options"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName explicitly sets the table name for GORM.
func (TransformImage) TableName() string {
	return "transform_images"
}

// NewTransformImage fills the option columns from opts. Options is always the
// encoded form of opts.
func NewTransformImage(imageID string, opts transform.Options) TransformImage {
	ti := TransformImage{
		ImageID:   imageID,
		Format:    string(opts.Format),
		Fit:       string(opts.Fit),
		Quality:   opts.Quality,
		Grayscale: opts.Grayscale,
		Blur:      opts.Blur,
		Sharpen:   opts.Sharpen,
		Rotate:    opts.Rotate,
		Enhance:   string(opts.Enhance),
		Options:   transform.Encode(opts),
	}
	if opts.Crop != nil {
		c := *opts.Crop
		ti.CropLeft, ti.CropTop, ti.CropWidth, ti.CropHeight = &c.Left, &c.Top, &c.Width, &c.Height
	}
	return ti
}

// Crop returns the crop box, nil when the variant was not cropped.
func (t TransformImage) Crop() *transform.Crop {
	if t.CropLeft == nil && t.CropTop == nil && t.CropWidth == nil && t.CropHeight == nil {
		return nil
	}
	deref := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}
	return &transform.Crop{
		Left:   deref(t.CropLeft),
		Top:    deref(t.CropTop),
		Width:  deref(t.CropWidth),
		Height: deref(t.CropHeight),
	}
}

// TransformOptions decodes the stored options string for replay.
func (t TransformImage) TransformOptions() transform.Options {
	return transform.Decode(t.Options)
}

// MarshalJSON exposes the crop columns as a single nested object.
func (t TransformImage) MarshalJSON() ([]byte, error) {
	type plain TransformImage
	return json.Marshal(struct {
		plain
		Crop *transform.Crop `json:"crop,omitempty"`
	}{plain: plain(t), Crop: t.Crop()})
}
