package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a row does not exist for the caller. A row
// owned by another user is indistinguishable from a missing one.
var ErrNotFound = errors.New("not found")

// DraftRepo persists in-progress contract drafts, always scoped to the
// owning user.
type DraftRepo interface {
	// Upsert creates a draft when id is empty, otherwise updates the
	// caller's existing row. Updating a foreign or unknown id returns
	// ErrNotFound, never a silent success.
	Upsert(ctx context.Context, userID, id, payload string) (*model.DraftRecord, error)
	Get(ctx context.Context, userID, id string) (*model.DraftRecord, error)
}

// GormDraftRepo is the database-backed draft repository.
type GormDraftRepo struct {
	db *gorm.DB
}

func NewGormDraftRepo(db *gorm.DB) *GormDraftRepo {
	return &GormDraftRepo{db: db}
}

func (r *GormDraftRepo) Upsert(ctx context.Context, userID, id, payload string) (*model.DraftRecord, error) {
	if id == "" {
		rec := &model.DraftRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			Payload:   payload,
			Status:    model.StatusDraft,
			UpdatedAt: time.Now().UTC(),
		}
		if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
			return nil, fmt.Errorf("failed to create draft: %w", err)
		}
		return rec, nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.DraftRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"payload":    payload,
			"status":     model.StatusDraft,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update draft: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

func (r *GormDraftRepo) Get(ctx context.Context, userID, id string) (*model.DraftRecord, error) {
	var rec model.DraftRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &rec, nil
}
