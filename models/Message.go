package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is the system of record for the messaging subsystem. Rows are
// append-only: nothing updates or deletes them, and conversations are derived
// from them at read time rather than stored.
type Message struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID `json:"senderId" gorm:"type:uuid;not null;index"`
	ReceiverID uuid.UUID `json:"receiverId" gorm:"type:uuid;not null;index"`
	ListingID  uuid.UUID `json:"listingId" gorm:"type:uuid;not null;index"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	// Timestamp is assigned server-side on insert. A client-supplied value is
	// never trusted: it would let a participant forge conversation ordering.
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
