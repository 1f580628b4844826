package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/s-ciobanu-r/jora-webapp/model"
	"gorm.io/gorm"
)

// IdempotencyStore remembers the finalize response for each (caller, key)
// pair so duplicate submits replay the stored response instead of repeating
// the irreversible action.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Lookup returns the stored response bytes for the pair, or ok=false when
// the action has not run yet.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	var rec model.IdempotencyRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up idempotency record: %w", err)
	}
	return rec.Response, true, nil
}

// Store records a successful response for the pair. Only success records are
// ever stored; a failed downstream call leaves the key unused so a retry can
// run the action.
func (s *IdempotencyStore) Store(ctx context.Context, userID, key, response string) error {
	rec := model.IdempotencyRecord{
		UserID:         userID,
		IdempotencyKey: key,
		Response:       response,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}
