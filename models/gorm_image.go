package models

import (
	"time"

	"gorm.io/gorm"
)

// Image represents an uploaded source image using GORM.
// It corresponds to the 'images' table.
type Image struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	UserID      string `gorm:"index;not null" json:"userId"`
	PublicID    string `gorm:"uniqueIndex;not null" json:"publicId"` // storage key of the original
	OriginalURL string `gorm:"not null" json:"originalUrl"`
	Size        int64  `gorm:"not null" json:"size"`
	Format      string `gorm:"not null" json:"format"`
	Width       int    `gorm:"not null" json:"width"`
	Height      int    `gorm:"not null" json:"height"`

	CameraMake  *string `gorm:"" json:"cameraMake,omitempty"`  // Nullable, EXIF
	CameraModel *string `gorm:"" json:"cameraModel,omitempty"` // Nullable, EXIF
	TakenAt     *int64  `gorm:"" json:"takenAt,omitempty"`     // Nullable, Unix timestamp

	Transformed bool `gorm:"not null;default:false" json:"transformed"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // For soft deletes

	// Relationships
	Variants []TransformImage `gorm:"foreignKey:ImageID" json:"variants,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
