// Package validation gates wizard step transitions. Validators are pure and
// synchronous: they never perform I/O and never mutate the draft. Errors map
// dotted field paths to machine-readable codes; resolving codes to display
// text is the UI's concern.
package validation

import (
	"net/mail"
	"regexp"

	"github.com/s-ciobanu-r/jora-webapp/model"
)

// Error codes resolved to text by the i18n layer.
const (
	CodeRequired         = "errors.required"
	CodeInvalidDate      = "errors.invalidDate"
	CodeInvalidVINLength = "errors.invalidVinLength"
	CodeInvalidVINFormat = "errors.invalidVinFormat"
	CodeInvalidNumber    = "errors.invalidNumber"
	CodeMustBePositive   = "errors.mustBePositive"
	CodeMustBeInteger    = "errors.mustBeInteger"
	CodeTooLarge         = "errors.tooLarge"
	CodeInvalidEmail     = "errors.invalidEmail"
)

// MaxKM is the upper bound on plausible mileage.
const MaxKM = 1_500_000

// ISO 3779 VIN alphabet: I, O and Q are excluded.
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// Result is the outcome of validating a draft against one step schema or
// the full-draft schema.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func valid() Result {
	return Result{Valid: true}
}

// errorSet accumulates field errors and keeps the first code per path.
type errorSet map[string]string

func (e errorSet) add(path, code string) {
	if _, ok := e[path]; !ok {
		e[path] = code
	}
}

func (e errorSet) result() Result {
	if len(e) == 0 {
		return valid()
	}
	return Result{Valid: false, Errors: e}
}

// ContractInfo validates the contract-info step.
func ContractInfo(d model.ContractDraft) Result {
	errs := errorSet{}
	if d.Contract.Number == "" {
		errs.add("contract.number", CodeRequired)
	}
	if d.Contract.Date == "" {
		errs.add("contract.date", CodeRequired)
	} else if !model.IsISODate(d.Contract.Date) {
		errs.add("contract.date", CodeInvalidDate)
	}
	return errs.result()
}

// Vehicle validates the vehicle step. The VIN is checked against its
// normalized form, so callers may pass raw input.
func Vehicle(d model.ContractDraft) Result {
	errs := errorSet{}
	if d.Vehicle.BrandModel == "" {
		errs.add("vehicle.brand_model", CodeRequired)
	}

	vin := model.NormalizeVIN(d.Vehicle.VIN)
	switch {
	case vin == "":
		errs.add("vehicle.vin", CodeRequired)
	case len(vin) != 17:
		errs.add("vehicle.vin", CodeInvalidVINLength)
	case !vinPattern.MatchString(vin):
		errs.add("vehicle.vin", CodeInvalidVINFormat)
	}

	switch {
	case d.Vehicle.KM <= 0:
		errs.add("vehicle.km", CodeMustBePositive)
	case d.Vehicle.KM > MaxKM:
		errs.add("vehicle.km", CodeTooLarge)
	}

	if d.Vehicle.FirstReg == "" {
		errs.add("vehicle.first_reg", CodeRequired)
	} else if !model.IsISODate(d.Vehicle.FirstReg) {
		errs.add("vehicle.first_reg", CodeInvalidDate)
	}
	return errs.result()
}

// Buyer validates the buyer step.
func Buyer(d model.ContractDraft) Result {
	errs := errorSet{}
	b := d.Buyer
	required := []struct {
		path  string
		value string
	}{
		{"buyer.full_name", b.FullName},
		{"buyer.street", b.Street},
		{"buyer.zip", b.Zip},
		{"buyer.city", b.City},
		{"buyer.phone", b.Phone},
		{"buyer.document_number", b.DocumentNumber},
		{"buyer.document_authority", b.DocumentAuthority},
	}
	for _, f := range required {
		if f.value == "" {
			errs.add(f.path, CodeRequired)
		}
	}
	// Email is optional but must parse when present
	if b.Email != "" {
		if _, err := mail.ParseAddress(b.Email); err != nil {
			errs.add("buyer.email", CodeInvalidEmail)
		}
	}
	return errs.result()
}

// Price validates the price step.
func Price(d model.ContractDraft) Result {
	errs := errorSet{}
	if d.Price <= 0 {
		errs.add("price", CodeMustBePositive)
	}
	return errs.result()
}

// FullDraft is the union of all step schemas. It is the sole gate before the
// finalize call.
func FullDraft(d model.ContractDraft) Result {
	errs := errorSet{}
	for _, r := range []Result{ContractInfo(d), Vehicle(d), Buyer(d), Price(d)} {
		for path, code := range r.Errors {
			errs.add(path, code)
		}
	}
	return errs.result()
}
