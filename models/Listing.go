package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyTypes is the closed set accepted for Listing.PropertyType.
var PropertyTypes = []string{
	"Apartment", "House", "Condo", "Townhouse", "Studio", "Loft", "Duplex", "Room",
}

type Listing struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Title         string    `json:"title" gorm:"not null"`
	Description   string    `json:"description" gorm:"not null"`
	Price         float64   `json:"price" gorm:"not null"`
	Address       string    `json:"address" gorm:"not null"`
	City          string    `json:"city" gorm:"not null"`
	State         string    `json:"state" gorm:"not null"`
	PropertyType  string    `json:"propertyType" gorm:"not null"`
	Bedrooms      int       `json:"bedrooms" gorm:"not null"`
	Bathrooms     float64   `json:"bathrooms" gorm:"not null"`
	AvailableFrom time.Time `json:"availableFrom" gorm:"not null"`
	AvailableTo   time.Time `json:"availableTo" gorm:"not null"`
	Status        string    `json:"status" gorm:"size:16;default:active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Images []ListingImage `json:"images" gorm:"constraint:OnDelete:CASCADE"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type ListingImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ListingID uuid.UUID `json:"listingId" gorm:"type:uuid;not null;index"`
	ImageURL  string    `json:"imageUrl" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i *ListingImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
