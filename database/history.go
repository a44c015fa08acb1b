package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// VariantHistoryQuery builds the SQL listing an image's transform variants,
// newest first. limit <= 0 means no limit.
func VariantHistoryQuery(imageID string, limit int) (string, []interface{}, error) {
	queryBuilder := psql.Select("*").
		From("transform_images").
		Where(sq.Eq{"image_id": imageID}).
		OrderBy("created_at DESC", "id DESC")

	if limit > 0 {
		queryBuilder = queryBuilder.Limit(uint64(limit))
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build SQL query for VariantHistoryQuery: %w", err)
	}
	return sqlStr, args, nil
}
