// Package wizard is the client-side core of the contract creation flow: the
// draft store that owns the in-progress document, the step controller that
// gates transitions, and the autosave coordinator that keeps the remote draft
// store in sync. It talks to the backend only through the DraftSaver and
// Finalizer interfaces.
package wizard

import (
	"errors"
	"sync"

	"github.com/s-ciobanu-r/jora-webapp/model"
)

// ErrDraftLocked is returned by mutators once a finalize attempt is in
// flight or the draft has completed. A completed draft is immutable; only
// Reset produces an editable draft again.
var ErrDraftLocked = errors.New("draft is locked for editing")

// PersistedState is the subset of store state that may touch any storage
// medium: the draft document and its lifecycle metadata. UI flags live in
// UIState and are deliberately a separate structure so they cannot leak into
// persistence.
type PersistedState struct {
	Draft model.ContractDraft     `json:"draft"`
	Meta  model.ContractDraftMeta `json:"meta"`
}

// UIState is session-transient wizard state. It is reconstructible from
// nothing; losing it on reload must never corrupt the draft.
type UIState struct {
	CurrentStep  Step
	IsDirty      bool
	IsSaving     bool
	IsSubmitting bool
}

// ContractPatch, VehiclePatch and BuyerPatch carry partial updates; nil
// fields are left untouched by the shallow merge.
type ContractPatch struct {
	Number *string
	Date   *string
}

type VehiclePatch struct {
	BrandModel *string
	VIN        *string
	KM         *int
	FirstReg   *string
	OCRFileURL *string
}

type BuyerPatch struct {
	ID                *int64
	FullName          *string
	Street            *string
	StreetNo          *string
	Zip               *string
	City              *string
	Phone             *string
	Email             *string
	DocumentNumber    *string
	DocumentAuthority *string
}

// DraftStore is the single source of truth for the contract draft and its
// metadata. All reads by other components are snapshots taken under the lock,
// so nothing can observe a half-applied mutation.
type DraftStore struct {
	mu      sync.Mutex
	draft   model.ContractDraft
	meta    model.ContractDraftMeta
	ui      UIState
	onDirty func()
}

// NewDraftStore creates a store holding a fresh empty draft with a new
// idempotency key.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		draft: model.EmptyContractDraft(),
		meta:  model.NewDraftMeta(),
	}
}

// SetDirtyHook registers a callback invoked (outside the lock) after any
// mutation marks the draft dirty. The autosave coordinator uses it to arm
// its debounce timer.
func (s *DraftStore) SetDirtyHook(fn func()) {
	s.mu.Lock()
	s.onDirty = fn
	s.mu.Unlock()
}

func (s *DraftStore) locked() bool {
	return s.ui.IsSubmitting || s.meta.Status == model.StatusCompleted
}

// mutate runs fn under the lock, marks the draft dirty and fires the dirty
// hook. It refuses edits while a finalize attempt is in flight or after
// completion.
func (s *DraftStore) mutate(fn func()) error {
	s.mu.Lock()
	if s.locked() {
		s.mu.Unlock()
		return ErrDraftLocked
	}
	fn()
	s.ui.IsDirty = true
	hook := s.onDirty
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// UpdateContract shallow-merges a patch into the contract sub-object.
func (s *DraftStore) UpdateContract(p ContractPatch) error {
	return s.mutate(func() {
		if p.Number != nil {
			s.draft.Contract.Number = *p.Number
		}
		if p.Date != nil {
			s.draft.Contract.Date = *p.Date
		}
	})
}

// UpdateVehicle shallow-merges a patch into the vehicle sub-object. The VIN
// is stored normalized.
func (s *DraftStore) UpdateVehicle(p VehiclePatch) error {
	return s.mutate(func() {
		if p.BrandModel != nil {
			s.draft.Vehicle.BrandModel = *p.BrandModel
		}
		if p.VIN != nil {
			s.draft.Vehicle.VIN = model.NormalizeVIN(*p.VIN)
		}
		if p.KM != nil {
			s.draft.Vehicle.KM = *p.KM
		}
		if p.FirstReg != nil {
			s.draft.Vehicle.FirstReg = *p.FirstReg
		}
		if p.OCRFileURL != nil {
			s.draft.Vehicle.OCRFileURL = *p.OCRFileURL
		}
	})
}

// UpdateBuyer shallow-merges a patch into the buyer sub-object.
func (s *DraftStore) UpdateBuyer(p BuyerPatch) error {
	return s.mutate(func() {
		if p.ID != nil {
			s.draft.Buyer.ID = *p.ID
		}
		if p.FullName != nil {
			s.draft.Buyer.FullName = *p.FullName
		}
		if p.Street != nil {
			s.draft.Buyer.Street = *p.Street
		}
		if p.StreetNo != nil {
			s.draft.Buyer.StreetNo = *p.StreetNo
		}
		if p.Zip != nil {
			s.draft.Buyer.Zip = *p.Zip
		}
		if p.City != nil {
			s.draft.Buyer.City = *p.City
		}
		if p.Phone != nil {
			s.draft.Buyer.Phone = *p.Phone
		}
		if p.Email != nil {
			s.draft.Buyer.Email = *p.Email
		}
		if p.DocumentNumber != nil {
			s.draft.Buyer.DocumentNumber = *p.DocumentNumber
		}
		if p.DocumentAuthority != nil {
			s.draft.Buyer.DocumentAuthority = *p.DocumentAuthority
		}
	})
}

// UpdatePrice replaces the sale price.
func (s *DraftStore) UpdatePrice(price float64) error {
	return s.mutate(func() {
		s.draft.Price = price
	})
}

// SetStep moves the wizard to a step. Step index is UI state only and never
// gates correctness.
func (s *DraftStore) SetStep(step Step) {
	s.mu.Lock()
	s.ui.CurrentStep = step
	s.mu.Unlock()
}

// BeginSave flags an autosave in flight. It returns false when a save is
// already running so at most one is in flight per draft.
func (s *DraftStore) BeginSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ui.IsSaving {
		return false
	}
	s.ui.IsSaving = true
	return true
}

// EndSave clears the in-flight flag without acknowledging a save (used on
// failure).
func (s *DraftStore) EndSave() {
	s.mu.Lock()
	s.ui.IsSaving = false
	s.mu.Unlock()
}

// MarkSaved records the server-assigned draft id and timestamp and clears
// the dirty and saving flags.
func (s *DraftStore) MarkSaved(draftID, updatedAt string) {
	s.mu.Lock()
	s.meta.DraftID = draftID
	if updatedAt != "" {
		s.meta.UpdatedAt = updatedAt
	}
	s.ui.IsDirty = false
	s.ui.IsSaving = false
	s.mu.Unlock()
}

// MarkSubmitting moves the draft into the submitted state and blocks further
// edits until the finalize call resolves.
func (s *DraftStore) MarkSubmitting() {
	s.mu.Lock()
	s.ui.IsSubmitting = true
	if s.meta.Status == model.StatusDraft {
		s.meta.Status = model.StatusSubmitted
	}
	s.mu.Unlock()
}

// MarkSubmitFailed records a recoverable finalize failure: editing is
// unblocked, the status stays submitted, and the idempotency key is
// untouched so a retry is treated as a duplicate by the gateway.
func (s *DraftStore) MarkSubmitFailed() {
	s.mu.Lock()
	s.ui.IsSubmitting = false
	s.mu.Unlock()
}

// MarkSubmitted records the finalize result. Terminal: the draft becomes
// immutable until Reset.
func (s *DraftStore) MarkSubmitted(contractID int64, pdfURL string) {
	s.mu.Lock()
	s.meta.Status = model.StatusCompleted
	s.meta.FinalizedContractID = contractID
	s.meta.PDFURL = pdfURL
	s.ui.IsSubmitting = false
	s.ui.IsDirty = false
	s.mu.Unlock()
}

// Reset discards the draft and mints a brand-new one with a brand-new
// idempotency key. This is the only mint point besides NewDraftStore.
func (s *DraftStore) Reset() {
	s.mu.Lock()
	s.draft = model.EmptyContractDraft()
	s.meta = model.NewDraftMeta()
	s.ui = UIState{}
	s.mu.Unlock()
}

// Restore loads a previously persisted draft+meta (e.g. after a reload).
// UI flags are not part of the persisted subset and start zeroed.
func (s *DraftStore) Restore(p PersistedState) {
	s.mu.Lock()
	s.draft = p.Draft
	s.draft.Vehicle.VIN = model.NormalizeVIN(s.draft.Vehicle.VIN)
	s.meta = p.Meta
	s.ui = UIState{}
	s.mu.Unlock()
}

// Snapshot returns copies of the draft and meta taken atomically. Callers
// hold no reference into store-owned state afterwards.
func (s *DraftStore) Snapshot() (model.ContractDraft, model.ContractDraftMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft, s.meta
}

// Persisted returns the serialization boundary: draft and meta only.
func (s *DraftStore) Persisted() PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PersistedState{Draft: s.draft, Meta: s.meta}
}

// UI returns a copy of the session-transient flags.
func (s *DraftStore) UI() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}
