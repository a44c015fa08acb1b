package repository

import (
	"errors"

	"github.com/camden-git/imagestudio/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ImageUpdate carries the mutable image fields; nil means unchanged.
type ImageUpdate struct {
	OriginalURL *string
	UserID      *string
	Width       *int
	Height      *int
	Transformed *bool
}

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	Create(image *models.Image) error
	GetByID(id string) (*models.Image, error)
	GetByPublicID(publicID string) (*models.Image, error)
	ListAll(sortOrder string) ([]models.Image, error)
	ListByUserID(userID string, sortOrder string) ([]models.Image, error)
	Update(id string, update ImageUpdate) (*models.Image, error)
	MarkTransformed(id string) error
	Delete(id string) error
}

// VariantRepositoryInterface defines the methods for transform variant records.
// Variants are append-only.
type VariantRepositoryInterface interface {
	Create(variant *models.TransformImage) error
	GetByID(id string) (*models.TransformImage, error)
	ListByImageID(imageID string, limit int) ([]models.TransformImage, error)
}

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByClerkID(clerkID string) (*models.User, error)
	ListAll() ([]models.User, error)
	Delete(id string) error
}
