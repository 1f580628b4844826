package model

import "time"

// DraftRecord is a persisted draft row. The payload is stored as opaque JSON;
// the server never interprets draft contents beyond ownership checks.
type DraftRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"not null;index" json:"-"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Status    string    `gorm:"not null;default:draft" json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdempotencyRecord stores the finalize response for one (caller, key) pair.
// A stored row means the irreversible action already ran; the response is
// replayed verbatim on duplicate submits.
type IdempotencyRecord struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"not null;uniqueIndex:idx_user_idem_key"`
	IdempotencyKey string    `gorm:"not null;uniqueIndex:idx_user_idem_key"`
	Response       string    `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

// Buyer is a saved buyer belonging to one user, returned by the lookup
// endpoint to prefill the buyer step.
type Buyer struct {
	ID                int64  `gorm:"primaryKey" json:"id"`
	UserID            string `gorm:"not null;index" json:"-"`
	FullName          string `gorm:"not null;index" json:"full_name"`
	Street            string `json:"street"`
	StreetNo          string `json:"street_no,omitempty"`
	Zip               string `json:"zip"`
	City              string `json:"city"`
	Phone             string `json:"phone"`
	Email             string `json:"email,omitempty"`
	DocumentNumber    string `json:"document_number,omitempty"`
	DocumentAuthority string `json:"document_authority,omitempty"`
}
