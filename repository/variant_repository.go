package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/imagestudio/database"
	"github.com/camden-git/imagestudio/models"
)

// VariantRepository stores TransformImage records.
type VariantRepository struct {
	DB *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{DB: db}
}

// Create inserts a new variant. Existing variants are never modified.
func (r *VariantRepository) Create(variant *models.TransformImage) error {
	if variant.ID == "" {
		variant.ID = uuid.NewString()
	}
	if err := r.DB.Create(variant).Error; err != nil {
		return fmt.Errorf("failed to persist transform record for image %s: %w", variant.ImageID, err)
	}
	return nil
}

func (r *VariantRepository) GetByID(id string) (*models.TransformImage, error) {
	var variant models.TransformImage
	err := r.DB.Where("id = ?", id).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transform record %s: %w", id, err)
	}
	return &variant, nil
}

// ListByImageID returns the image's variants, newest first.
func (r *VariantRepository) ListByImageID(imageID string, limit int) ([]models.TransformImage, error) {
	sqlStr, args, err := database.VariantHistoryQuery(imageID, limit)
	if err != nil {
		return nil, err
	}

	variants := []models.TransformImage{}
	if err := r.DB.Raw(sqlStr, args...).Scan(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to list transform records for image %s: %w", imageID, err)
	}
	return variants, nil
}
