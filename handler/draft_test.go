package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/service"
)

func draftRouter(repo service.DraftRepo, userID string) *gin.Engine {
	handler := NewDraftHandler(repo)
	router := gin.New()
	router.POST("/draft", asUser(userID, handler.Upsert))
	router.GET("/draft/:id", asUser(userID, handler.Get))
	return router
}

func TestDraftHandlerCreate(t *testing.T) {
	repo := service.NewMemDraftRepo(100)
	router := draftRouter(repo, "user-1")

	body := `{"id": "", "payload": {"price": 8500}}`
	req := httptest.NewRequest("POST", "/draft", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["id"] == "" {
		t.Error("Expected a draft id in response")
	}
	if response["updated_at"] == "" {
		t.Error("Expected updated_at in response")
	}
}

func TestDraftHandlerUpdate(t *testing.T) {
	repo := service.NewMemDraftRepo(100)
	router := draftRouter(repo, "user-1")

	req := httptest.NewRequest("POST", "/draft", strings.NewReader(`{"payload": {"price": 1}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"id": created["id"], "payload": map[string]int{"price": 2}})
	req = httptest.NewRequest("POST", "/draft", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var updated map[string]string
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated["id"] != created["id"] {
		t.Errorf("Expected same draft id, got '%s' and '%s'", created["id"], updated["id"])
	}
}

func TestDraftHandlerBeaconContentType(t *testing.T) {
	// navigator.sendBeacon can only send text/plain; the body is still the
	// same JSON.
	repo := service.NewMemDraftRepo(100)
	router := draftRouter(repo, "user-1")

	req := httptest.NewRequest("POST", "/draft", strings.NewReader(`{"payload": {"price": 8500}}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for text/plain body, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDraftHandlerForeignDraft(t *testing.T) {
	repo := service.NewMemDraftRepo(100)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/draft", strings.NewReader(`{"payload": {"price": 1}}`))
	req.Header.Set("Content-Type", "application/json")
	draftRouter(repo, "user-1").ServeHTTP(w, req)

	var created map[string]string
	json.Unmarshal(w.Body.Bytes(), &created)

	// Another caller can neither update nor read it.
	other := draftRouter(repo, "user-2")

	body, _ := json.Marshal(map[string]any{"id": created["id"], "payload": map[string]int{"price": 2}})
	req = httptest.NewRequest("POST", "/draft", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	other.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign update, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/draft/"+created["id"], nil)
	w = httptest.NewRecorder()
	other.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign read, got %d", w.Code)
	}
}

func TestDraftHandlerResume(t *testing.T) {
	repo := service.NewMemDraftRepo(100)
	router := draftRouter(repo, "user-1")

	payload := `{"draft":{"price":8500},"meta":{"status":"draft"}}`
	req := httptest.NewRequest("POST", "/draft", strings.NewReader(`{"payload": `+payload+`}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var created map[string]string
	json.Unmarshal(w.Body.Bytes(), &created)

	req = httptest.NewRequest("GET", "/draft/"+created["id"], nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
		Status  string          `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Status != "draft" {
		t.Errorf("Expected status draft, got '%s'", response.Status)
	}

	// The payload comes back exactly as stored.
	var got, want any
	json.Unmarshal(response.Payload, &got)
	json.Unmarshal([]byte(payload), &want)
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("Expected payload round-trip, got %s", response.Payload)
	}
}

func TestDraftHandlerRejectsMissingPayload(t *testing.T) {
	repo := service.NewMemDraftRepo(100)
	router := draftRouter(repo, "user-1")

	for _, body := range []string{`{}`, `{"payload": null}`, `not json`} {
		req := httptest.NewRequest("POST", "/draft", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for body %q, got %d", body, w.Code)
		}
	}
}
