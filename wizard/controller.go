package wizard

import (
	"context"
	"sync"

	"github.com/s-ciobanu-r/jora-webapp/model"
	"github.com/s-ciobanu-r/jora-webapp/validation"
)

// Step is one screen of the wizard. The set is closed: an unknown step is a
// compile-time concern, not a runtime lookup.
type Step int

const (
	StepContractInfo Step = iota
	StepVehicle
	StepBuyer
	StepPrice
	StepReview

	stepCount
)

func (s Step) String() string {
	switch s {
	case StepContractInfo:
		return "contract-info"
	case StepVehicle:
		return "vehicle"
	case StepBuyer:
		return "buyer"
	case StepPrice:
		return "price"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// validate runs the step's schema against a draft snapshot.
func (s Step) validate(d model.ContractDraft) validation.Result {
	switch s {
	case StepContractInfo:
		return validation.ContractInfo(d)
	case StepVehicle:
		return validation.Vehicle(d)
	case StepBuyer:
		return validation.Buyer(d)
	case StepPrice:
		return validation.Price(d)
	default:
		return validation.FullDraft(d)
	}
}

// FinalizeResult is the gateway's answer to the one irreversible call.
type FinalizeResult struct {
	ContractID int64  `json:"contract_id"`
	PDFURL     string `json:"pdf_url"`
}

// Finalizer is the boundary to the idempotent finalize endpoint. The full
// draft payload travels with every call; the key makes retries duplicates
// rather than repeats.
type Finalizer interface {
	Finalize(ctx context.Context, draft model.ContractDraft, idempotencyKey string) (*FinalizeResult, error)
}

// Controller sequences the wizard steps, applies validation as the gate
// between them, and triggers the single finalize call from the review step.
type Controller struct {
	store   *DraftStore
	gateway Finalizer

	mu       sync.Mutex
	errs     map[string]string
	fatalErr error
}

func NewController(store *DraftStore, gateway Finalizer) *Controller {
	return &Controller{store: store, gateway: gateway}
}

// Errors returns the field errors from the last failed gate.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// FatalError returns the last finalize failure, if any. It is dismissible:
// ClearFatalError drops it without touching the draft.
func (c *Controller) FatalError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalErr
}

func (c *Controller) ClearFatalError() {
	c.mu.Lock()
	c.fatalErr = nil
	c.mu.Unlock()
}

// Completed reports whether the draft reached its terminal state. The UI
// renders only the success screen once this is true, regardless of step.
func (c *Controller) Completed() bool {
	_, meta := c.store.Snapshot()
	return meta.Status == model.StatusCompleted
}

func (c *Controller) setErrors(errs map[string]string) {
	c.mu.Lock()
	c.errs = errs
	c.mu.Unlock()
}

// Next validates the active step against a snapshot of the draft. On failure
// the errors are surfaced and the step does not change. On success errors are
// cleared and the wizard advances; on the review step it finalizes instead.
func (c *Controller) Next(ctx context.Context) error {
	draft, _ := c.store.Snapshot()
	step := c.store.UI().CurrentStep

	if step >= StepReview {
		return c.Finalize(ctx)
	}

	result := step.validate(draft)
	if !result.Valid {
		c.setErrors(result.Errors)
		return nil
	}

	c.setErrors(nil)
	c.store.SetStep(step + 1)
	return nil
}

// Back clears errors and moves one step back, clamped at the first step.
func (c *Controller) Back() {
	c.setErrors(nil)
	step := c.store.UI().CurrentStep
	if step > 0 {
		c.store.SetStep(step - 1)
	}
}

// Jump moves directly to a section from the review screen. Already-passed
// steps are not re-validated; the full-draft gate before finalize covers any
// edits made on the way back.
func (c *Controller) Jump(step Step) {
	if step < 0 || step >= stepCount {
		return
	}
	c.setErrors(nil)
	c.store.SetStep(step)
}

// Finalize runs the full-draft validator as a last-resort gate, then invokes
// the gateway with the draft snapshot and the draft's immutable idempotency
// key. A failure leaves the status submitted and the same key in place, so a
// retry is a duplicate to the gateway, not a second irreversible action.
func (c *Controller) Finalize(ctx context.Context) error {
	draft, meta := c.store.Snapshot()

	// Terminal already; a duplicate submit is treated as success.
	if meta.Status == model.StatusCompleted {
		return nil
	}

	result := validation.FullDraft(draft)
	if !result.Valid {
		c.setErrors(result.Errors)
		return nil
	}
	c.setErrors(nil)

	c.store.MarkSubmitting()

	// Snapshot again after locking out edits so the payload sent is exactly
	// what the user reviewed.
	draft, meta = c.store.Snapshot()

	res, err := c.gateway.Finalize(ctx, draft, meta.IdempotencyKey)
	if err != nil {
		c.mu.Lock()
		c.fatalErr = err
		c.mu.Unlock()
		c.store.MarkSubmitFailed()
		return err
	}

	c.store.MarkSubmitted(res.ContractID, res.PDFURL)
	return nil
}
