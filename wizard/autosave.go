package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last edit before an
// autosave fires.
const DefaultDebounce = 3 * time.Second

// DraftSaver is the boundary to the remote draft persistence endpoint. An
// empty id means create; a non-empty id means update the caller's own row.
// This is not the finalize path: saves carry no idempotency key and are
// repeatable.
type DraftSaver interface {
	SaveDraft(ctx context.Context, id string, state PersistedState) (savedID, updatedAt string, err error)
}

// Autosave keeps the remote draft store approximately in sync with local
// edits. Failures are silent: the next dirty edit naturally re-arms another
// attempt, and nothing here ever blocks the user.
type Autosave struct {
	store *DraftStore
	saver DraftSaver
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewAutosave wires the coordinator to the store's dirty hook. delay <= 0
// selects DefaultDebounce.
func NewAutosave(store *DraftStore, saver DraftSaver, delay time.Duration) *Autosave {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	a := &Autosave{store: store, saver: saver, delay: delay}
	store.SetDirtyHook(a.Schedule)
	return a
}

// Schedule arms the debounce timer, resetting it if already armed, so the
// save fires one quiet period after the most recent edit. No timer is armed
// while a save is in flight; the next edit re-arms one.
func (a *Autosave) Schedule() {
	ui := a.store.UI()
	if ui.IsSaving || !ui.IsDirty {
		return
	}

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.save(context.Background()) })
	a.mu.Unlock()
}

// Cancel drops any scheduled save. An in-flight save is not interrupted.
func (a *Autosave) Cancel() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
}

// FlushSync is the teardown path: it cancels the pending timer and, if the
// draft is dirty, delivers one save synchronously so the latest payload
// survives the session ending before the debounce window closed.
func (a *Autosave) FlushSync(ctx context.Context) {
	a.Cancel()
	if !a.store.UI().IsDirty {
		return
	}
	a.save(ctx)
}

// save performs one attempt. The snapshot and the draft identity (its
// idempotency key) are captured before the request; if the store holds a
// different draft by the time the response arrives, the result is discarded
// so a stale save never writes into a new draft's metadata.
func (a *Autosave) save(ctx context.Context) {
	if !a.store.BeginSave() {
		return
	}

	state := a.store.Persisted()
	identity := state.Meta.IdempotencyKey

	id, updatedAt, err := a.saver.SaveDraft(ctx, state.Meta.DraftID, state)
	if err != nil {
		slog.Debug("draft autosave failed", "error", err)
		a.store.EndSave()
		return
	}

	_, meta := a.store.Snapshot()
	if meta.IdempotencyKey != identity {
		// Store was reset while the save was in flight.
		slog.Debug("discarding stale autosave response", "draft_id", id)
		a.store.EndSave()
		return
	}

	a.store.MarkSaved(id, updatedAt)
}
