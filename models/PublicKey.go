package models

import "github.com/google/uuid"

// PublicKey holds one encryption public key per user for client-side
// end-to-end message encryption. The server only distributes keys; it never
// decrypts message content.
type PublicKey struct {
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;primaryKey"`
	PublicKey string    `json:"publicKey" gorm:"type:text;not null"`
}
