package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/s-ciobanu-r/jora-webapp/config"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"github.com/s-ciobanu-r/jora-webapp/validation"
)

// Confidence tiers for extracted fields.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ExtractedFields holds best-effort values read from a vehicle document.
// Nil means the provider could not read the field.
type ExtractedFields struct {
	BrandModel *string `json:"brand_model"`
	VIN        *string `json:"vin"`
	KM         *int    `json:"km"`
	FirstReg   *string `json:"first_reg"`
}

// FieldConfidence carries one tier per extracted field.
type FieldConfidence struct {
	BrandModel string `json:"brand_model"`
	VIN        string `json:"vin"`
	KM         string `json:"km"`
	FirstReg   string `json:"first_reg"`
}

// ExtractResult is the normalized answer returned to the client.
type ExtractResult struct {
	Extracted  ExtractedFields `json:"extracted"`
	Confidence FieldConfidence `json:"confidence"`
}

// ExtractService calls an external vision model to read vehicle document
// fields. Provider output is treated as untrusted: anything malformed
// degrades to nulls with low confidence rather than failing the request.
type ExtractService struct {
	config     *config.ExtractConfig
	httpClient *http.Client
}

func NewExtractService(cfg *config.ExtractConfig) *ExtractService {
	return &ExtractService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

const extractPrompt = `You extract vehicle purchase contract data from an uploaded vehicle document.
Return STRICT JSON only, no markdown, no comments.

Schema:
{
  "brand_model": string|null,
  "vin": string|null,
  "km": number|null,
  "first_reg": string|null,
  "confidence": {
    "brand_model": "low"|"medium"|"high",
    "vin": "low"|"medium"|"high",
    "km": "low"|"medium"|"high",
    "first_reg": "low"|"medium"|"high"
  }
}

Rules:
- VIN must be 17 chars if present.
- km must be an integer if present.
- first_reg: prefer ISO YYYY-MM-DD, otherwise DD.MM.YYYY.
- If uncertain, output null and confidence "low".`

type extractAPIRequest struct {
	Model string             `json:"model"`
	Input []extractAPIPrompt `json:"input"`
}

type extractAPIPrompt struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type extractAPIResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// rawExtraction mirrors the provider's promised JSON shape. json.RawMessage
// keeps wrong-typed fields from failing the whole decode.
type rawExtraction struct {
	BrandModel json.RawMessage `json:"brand_model"`
	VIN        json.RawMessage `json:"vin"`
	KM         json.RawMessage `json:"km"`
	FirstReg   json.RawMessage `json:"first_reg"`
	Confidence struct {
		BrandModel string `json:"brand_model"`
		VIN        string `json:"vin"`
		KM         string `json:"km"`
		FirstReg   string `json:"first_reg"`
	} `json:"confidence"`
}

// Extract asks the provider to read the document at fileURL.
func (s *ExtractService) Extract(ctx context.Context, fileURL string) (*ExtractResult, error) {
	reqBody, err := json.Marshal(extractAPIRequest{
		Model: s.config.Model,
		Input: []extractAPIPrompt{
			{Role: "system", Content: extractPrompt},
			{Role: "user", Content: []map[string]any{
				{"type": "text", "text": "Extract the fields from this vehicle document."},
				{"type": "image_url", "image_url": map[string]string{"url": fileURL}},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/responses", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction provider returned status %d", resp.StatusCode)
	}

	var apiResp extractAPIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}

	// From here on everything is best-effort: a provider that returns
	// garbage yields an all-null, all-low result, not an error.
	return ParseExtraction([]byte(apiResp.Output)), nil
}

// ParseExtraction normalizes raw model output into an ExtractResult.
func ParseExtraction(output []byte) *ExtractResult {
	result := &ExtractResult{
		Confidence: FieldConfidence{
			BrandModel: ConfidenceLow,
			VIN:        ConfidenceLow,
			KM:         ConfidenceLow,
			FirstReg:   ConfidenceLow,
		},
	}

	var raw rawExtraction
	if err := json.Unmarshal(output, &raw); err != nil {
		return result
	}

	if v := rawString(raw.BrandModel); v != "" {
		result.Extracted.BrandModel = &v
		result.Confidence.BrandModel = tier(raw.Confidence.BrandModel)
	}
	if v := NormalizeExtractedVIN(rawString(raw.VIN)); v != "" {
		result.Extracted.VIN = &v
		result.Confidence.VIN = tier(raw.Confidence.VIN)
	}
	if km, ok := ClampKM(rawNumber(raw.KM)); ok {
		result.Extracted.KM = &km
		result.Confidence.KM = tier(raw.Confidence.KM)
	}
	if v := NormalizeExtractedDate(rawString(raw.FirstReg)); v != "" {
		result.Extracted.FirstReg = &v
		result.Confidence.FirstReg = tier(raw.Confidence.FirstReg)
	}
	return result
}

func rawString(msg json.RawMessage) string {
	var s string
	if json.Unmarshal(msg, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func rawNumber(msg json.RawMessage) string {
	var n float64
	if json.Unmarshal(msg, &n) == nil {
		return strconv.Itoa(int(math.Round(n)))
	}
	var s string
	if json.Unmarshal(msg, &s) == nil {
		return s
	}
	return ""
}

func tier(c string) string {
	switch c {
	case ConfidenceMedium, ConfidenceHigh:
		return c
	default:
		return ConfidenceLow
	}
}

// NormalizeExtractedVIN normalizes a candidate VIN and drops anything that
// is not plausibly one.
func NormalizeExtractedVIN(v string) string {
	vin := model.NormalizeVIN(v)
	if len(vin) != 17 {
		return ""
	}
	return vin
}

var germanDatePattern = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)

// NormalizeExtractedDate accepts ISO YYYY-MM-DD output as-is and converts
// DD.MM.YYYY; anything else is dropped.
func NormalizeExtractedDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if m := germanDatePattern.FindStringSubmatch(s); m != nil {
		s = m[3] + "-" + m[2] + "-" + m[1]
	}
	if !model.IsISODate(s) {
		return ""
	}
	return s
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// ClampKM parses a mileage candidate and rejects non-positive or absurd
// values.
func ClampKM(v string) (int, bool) {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "-") {
		return 0, false
	}
	s := nonDigits.ReplaceAllString(trimmed, "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if n <= 0 || n > validation.MaxKM {
		return 0, false
	}
	return n, true
}
