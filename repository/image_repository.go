package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/imagestudio/database"
	"github.com/camden-git/imagestudio/models"
)

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

func (r *ImageRepository) Create(image *models.Image) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	if err := r.DB.Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image %s: %w", image.PublicID, err)
	}
	return nil
}

// GetByID retrieves an image by its ID
func (r *ImageRepository) GetByID(id string) (*models.Image, error) {
	var image models.Image
	// GORM automatically respects soft deletes if DeletedAt is on the model
	err := r.DB.Where("id = ?", id).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}
	return &image, nil
}

func (r *ImageRepository) GetByPublicID(publicID string) (*models.Image, error) {
	var image models.Image
	err := r.DB.Where("public_id = ?", publicID).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image by public id %s: %w", publicID, err)
	}
	return &image, nil
}

func (r *ImageRepository) ListAll(sortOrder string) ([]models.Image, error) {
	var images []models.Image
	if err := r.DB.Order(database.OrderClause(sortOrder)).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	database.SortImages(images, sortOrder)
	return images, nil
}

func (r *ImageRepository) ListByUserID(userID string, sortOrder string) ([]models.Image, error) {
	var images []models.Image
	err := r.DB.Where("user_id = ?", userID).Order(database.OrderClause(sortOrder)).Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images for user %s: %w", userID, err)
	}
	database.SortImages(images, sortOrder)
	return images, nil
}

// Update applies the non-nil fields of update and returns the fresh record
func (r *ImageRepository) Update(id string, update ImageUpdate) (*models.Image, error) {
	updates := map[string]interface{}{}
	if update.OriginalURL != nil {
		updates["original_url"] = *update.OriginalURL
	}
	if update.UserID != nil {
		updates["user_id"] = *update.UserID
	}
	if update.Width != nil {
		updates["width"] = *update.Width
	}
	if update.Height != nil {
		updates["height"] = *update.Height
	}
	if update.Transformed != nil {
		updates["transformed"] = *update.Transformed
	}

	if len(updates) > 0 {
		result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update image %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(id)
}

func (r *ImageRepository) MarkTransformed(id string) error {
	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Update("transformed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark image %s transformed: %w", id, result.Error)
	}
	return nil
}

// Delete soft-deletes the image; its variants stay for history.
func (r *ImageRepository) Delete(id string) error {
	result := r.DB.Where("id = ?", id).Delete(&models.Image{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
