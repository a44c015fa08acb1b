package models

import "time"

// User is a local profile for an account held by the external identity
// provider. ClerkID is the provider's subject claim.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ClerkID   string    `json:"clerkId" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Images []Image `json:"-" gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (User) TableName() string {
	return "users"
}
