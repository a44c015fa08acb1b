package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/camden-git/imagestudio/models"
)

func TestVariantHistoryQuery(t *testing.T) {
	sqlStr, args, err := VariantHistoryQuery("img-1", 20)
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM transform_images WHERE image_id = ? ORDER BY created_at DESC, id DESC LIMIT 20", sqlStr)
	require.Equal(t, []interface{}{"img-1"}, args)

	sqlStr, _, err = VariantHistoryQuery("img-1", 0)
	require.NoError(t, err)
	require.NotContains(t, sqlStr, "LIMIT")
}

func TestSortImagesNatural(t *testing.T) {
	images := []models.Image{{PublicID: "img10"}, {PublicID: "img2"}, {PublicID: "img1"}}

	SortImages(images, SortPublicIDNat)
	require.Equal(t, "img1", images[0].PublicID)
	require.Equal(t, "img2", images[1].PublicID)
	require.Equal(t, "img10", images[2].PublicID)

	require.True(t, IsValidSortOrder(SortCreatedAsc))
	require.False(t, IsValidSortOrder("size"))
	require.Equal(t, "created_at ASC", OrderClause(SortCreatedAsc))
	require.Equal(t, "created_at DESC", OrderClause(SortPublicIDNat))
}

func TestInitGormDBMigrates(t *testing.T) {
	db, err := InitGormDB("file:database_test?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, AutoMigrateModels(db))
	require.True(t, db.Migrator().HasTable(&models.TransformImage{}))
}
