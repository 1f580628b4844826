package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContractDraft is the editable contract document under construction.
// It is exclusively owned by the wizard draft store; every other component
// works on snapshots.
type ContractDraft struct {
	Contract ContractInfo `json:"contract"`
	Vehicle  VehicleInfo  `json:"vehicle"`
	Buyer    BuyerInfo    `json:"buyer"`
	Price    float64      `json:"price"`
}

type ContractInfo struct {
	Number string `json:"number"`
	Date   string `json:"date"` // ISO date: YYYY-MM-DD
}

type VehicleInfo struct {
	BrandModel string `json:"brand_model"`
	VIN        string `json:"vin"`
	KM         int    `json:"km"`
	FirstReg   string `json:"first_reg"` // ISO date: YYYY-MM-DD
	OCRFileURL string `json:"ocr_file_url,omitempty"`
}

type BuyerInfo struct {
	ID                int64  `json:"id,omitempty"`
	FullName          string `json:"full_name"`
	Street            string `json:"street"`
	StreetNo          string `json:"street_no,omitempty"`
	Zip               string `json:"zip"`
	City              string `json:"city"`
	Phone             string `json:"phone"`
	Email             string `json:"email,omitempty"`
	DocumentNumber    string `json:"document_number,omitempty"`
	DocumentAuthority string `json:"document_authority,omitempty"`
}

// ContractDraftMeta is the draft lifecycle metadata, disjoint from the
// editable fields. The idempotency key is minted once per draft lifetime and
// never regenerated while the draft is open.
type ContractDraftMeta struct {
	DraftID             string `json:"draft_id,omitempty"` // assigned by the remote store on first save
	Status              string `json:"status"`
	IdempotencyKey      string `json:"idempotency_key"`
	FinalizedContractID int64  `json:"finalized_contract_id,omitempty"`
	PDFURL              string `json:"pdf_url,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"` // server timestamp
}

// Draft status constants. Status only moves forward:
// draft -> submitted -> completed.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
)

// EmptyContractDraft returns a fresh, all-zero draft.
func EmptyContractDraft() ContractDraft {
	return ContractDraft{}
}

// NewDraftMeta mints metadata for a brand-new draft with a fresh
// idempotency key. This and the store's Reset are the only mint points.
func NewDraftMeta() ContractDraftMeta {
	return ContractDraftMeta{
		Status:         StatusDraft,
		IdempotencyKey: uuid.New().String(),
	}
}

// NormalizeVIN trims and uppercases a VIN. Idempotent:
// NormalizeVIN(NormalizeVIN(x)) == NormalizeVIN(x).
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// IsISODate reports whether value is a strict YYYY-MM-DD calendar date.
func IsISODate(value string) bool {
	if len(value) != 10 {
		return false
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return false
	}
	return d.Format("2006-01-02") == value
}
