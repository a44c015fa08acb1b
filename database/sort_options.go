package database

import (
	"sort"

	"github.com/facette/natsort"

	"github.com/camden-git/imagestudio/models"
)

const (
	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortPublicIDNat = "public_id_nat"
)

const DefaultSortOrder = SortCreatedDesc

// SortOrders lists the accepted values of the sort query parameter.
var SortOrders = []string{SortCreatedDesc, SortCreatedAsc, SortPublicIDNat}

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortCreatedDesc, SortCreatedAsc, SortPublicIDNat:
		return true
	default:
		return false
	}
}

// OrderClause returns the SQL ORDER BY for orders the database can apply.
// Natural ordering is done in memory by SortImages.
func OrderClause(order string) string {
	switch order {
	case SortCreatedAsc:
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}

// SortImages applies orders that SQL cannot express.
func SortImages(images []models.Image, order string) {
	if order != SortPublicIDNat {
		return
	}
	sort.SliceStable(images, func(i, j int) bool {
		return natsort.Compare(images[i].PublicID, images[j].PublicID)
	})
}
