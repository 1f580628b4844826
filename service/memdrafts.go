package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/s-ciobanu-r/jora-webapp/model"
)

// MemDraftRepo is an in-memory DraftRepo. It backs deployments without a
// database DSN and the handler tests; drafts do not survive a restart.
type MemDraftRepo struct {
	mu        sync.RWMutex
	drafts    map[string]*model.DraftRecord
	maxDrafts int // 0 = unlimited
}

func NewMemDraftRepo(maxDrafts int) *MemDraftRepo {
	if maxDrafts < 0 {
		maxDrafts = 0
	}
	return &MemDraftRepo{
		drafts:    make(map[string]*model.DraftRecord),
		maxDrafts: maxDrafts,
	}
}

func (r *MemDraftRepo) Upsert(_ context.Context, userID, id, payload string) (*model.DraftRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		rec := &model.DraftRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			Payload:   payload,
			Status:    model.StatusDraft,
			UpdatedAt: time.Now().UTC(),
		}
		r.drafts[rec.ID] = rec
		r.cleanupIfNeeded()
		copied := *rec
		return &copied, nil
	}

	rec, ok := r.drafts[id]
	if !ok || rec.UserID != userID {
		return nil, ErrNotFound
	}
	rec.Payload = payload
	rec.Status = model.StatusDraft
	rec.UpdatedAt = time.Now().UTC()
	copied := *rec
	return &copied, nil
}

func (r *MemDraftRepo) Get(_ context.Context, userID, id string) (*model.DraftRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.drafts[id]
	if !ok || rec.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

// Count returns the number of stored drafts.
func (r *MemDraftRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drafts)
}

// cleanupIfNeeded removes the oldest drafts when the store exceeds
// maxDrafts. Must be called with the lock held.
func (r *MemDraftRepo) cleanupIfNeeded() {
	if r.maxDrafts <= 0 {
		return
	}
	if len(r.drafts) <= r.maxDrafts {
		return
	}

	recs := make([]*model.DraftRecord, 0, len(r.drafts))
	for _, rec := range r.drafts {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.Before(recs[j].UpdatedAt)
	})

	removeCount := len(recs) - r.maxDrafts
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting stale draft",
			"draft_id", recs[i].ID,
			"updated_at", recs[i].UpdatedAt,
		)
		delete(r.drafts, recs[i].ID)
	}
}
