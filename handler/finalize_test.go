package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/config"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"github.com/s-ciobanu-r/jora-webapp/service"
	"gorm.io/gorm"
)

// fakeEngine stands in for the workflow engine webhook. It counts how many
// times the irreversible action ran.
type fakeEngine struct {
	calls    atomic.Int64
	failNext atomic.Bool
	server   *httptest.Server
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	fe := &fakeEngine{}
	fe.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := fe.calls.Add(1)
		if fe.failNext.Swap(false) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "workflow crashed"}`))
			return
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["user_id"] == "" || payload["user_id"] == nil {
			t.Error("Expected user_id injected into engine payload")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"contract_id": n,
			"pdf_url":     "https://files.example.com/contract.pdf",
		})
	}))
	t.Cleanup(fe.server.Close)
	return fe
}

func finalizeRouter(db *gorm.DB, engineURL, userID string) *gin.Engine {
	engine := service.NewEngineService(&config.EngineConfig{WebhookURL: engineURL, APIKey: "test-key"})
	handler := NewFinalizeHandler(engine, service.NewIdempotencyStore(db))
	router := gin.New()
	router.POST("/finalize", asUser(userID, handler.Finalize))
	return router
}

func postFinalize(t *testing.T, router *gin.Engine, draft model.ContractDraft, key string) *httptest.ResponseRecorder {
	t.Helper()
	payload := map[string]any{
		"contract":        draft.Contract,
		"vehicle":         draft.Vehicle,
		"buyer":           draft.Buyer,
		"price":           draft.Price,
		"idempotency_key": key,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/finalize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFinalizeSuccess(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	w := postFinalize(t, router, validDraft(), "key-aaaa-0001")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.calls.Load() != 1 {
		t.Errorf("Expected 1 engine call, got %d", engine.calls.Load())
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["success"] != true {
		t.Errorf("Expected engine response passed through, got %s", w.Body.String())
	}
}

func TestFinalizeDuplicateReplaysStoredResponse(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	first := postFinalize(t, router, validDraft(), "key-aaaa-0002")
	if first.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", first.Code)
	}

	second := postFinalize(t, router, validDraft(), "key-aaaa-0002")
	if second.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on duplicate, got %d", second.Code)
	}
	if engine.calls.Load() != 1 {
		t.Errorf("Expected engine called once, got %d", engine.calls.Load())
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Errorf("Expected byte-identical replay, got %q and %q", first.Body.String(), second.Body.String())
	}
}

func TestFinalizeDistinctKeysRunTwice(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	postFinalize(t, router, validDraft(), "key-aaaa-0003")
	postFinalize(t, router, validDraft(), "key-aaaa-0004")

	if engine.calls.Load() != 2 {
		t.Errorf("Expected 2 engine calls for distinct keys, got %d", engine.calls.Load())
	}
}

func TestFinalizeEngineFailureStoresNothing(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	engine.failNext.Store(true)
	w := postFinalize(t, router, validDraft(), "key-aaaa-0005")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("workflow crashed")) {
		t.Error("Expected upstream body not leaked to the client")
	}

	// The key was not consumed, a retry runs the action.
	w = postFinalize(t, router, validDraft(), "key-aaaa-0005")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected retry to succeed, got %d", w.Code)
	}
	if engine.calls.Load() != 2 {
		t.Errorf("Expected 2 engine calls, got %d", engine.calls.Load())
	}
}

func TestFinalizeRejectsShortKey(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	w := postFinalize(t, router, validDraft(), "short")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for short key, got %d", w.Code)
	}
	if engine.calls.Load() != 0 {
		t.Errorf("Expected no engine calls, got %d", engine.calls.Load())
	}
}

func TestFinalizeRejectsInvalidDraft(t *testing.T) {
	engine := newFakeEngine(t)
	router := finalizeRouter(openTestDB(t), engine.server.URL, "user-1")

	draft := validDraft()
	draft.Vehicle.VIN = "TOOSHORT"
	w := postFinalize(t, router, draft, "key-aaaa-0006")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}
	if engine.calls.Load() != 0 {
		t.Errorf("Expected no engine calls for invalid draft, got %d", engine.calls.Load())
	}

	var response struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Errors["vehicle.vin"] != "errors.invalidVinLength" {
		t.Errorf("Expected vin length error, got %v", response.Errors)
	}
}

func TestFinalizeKeysScopedToCaller(t *testing.T) {
	engine := newFakeEngine(t)
	db := openTestDB(t)

	postFinalize(t, finalizeRouter(db, engine.server.URL, "user-1"), validDraft(), "key-aaaa-0007")
	postFinalize(t, finalizeRouter(db, engine.server.URL, "user-2"), validDraft(), "key-aaaa-0007")

	if engine.calls.Load() != 2 {
		t.Errorf("Expected the same key to run once per caller, got %d calls", engine.calls.Load())
	}
}
