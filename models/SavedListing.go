package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedListing is a pure bookmark relation between a user and a listing.
type SavedListing struct {
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;primaryKey"`
	ListingID uuid.UUID `json:"listingId" gorm:"type:uuid;primaryKey"`
	SavedAt   time.Time `json:"savedAt" gorm:"autoCreateTime"`
}
