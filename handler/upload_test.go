package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeStorage struct {
	lastKey  string
	lastType string
	lastSize int64
}

func (f *fakeStorage) Upload(_ context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error) {
	f.lastKey = objectKey
	f.lastType = contentType
	f.lastSize = size
	io.Copy(io.Discard, reader)
	return "https://storage.example.com/" + objectKey, nil
}

func uploadRouter(storage ObjectStorage, userID string) *gin.Engine {
	handler := NewUploadHandler(storage)
	router := gin.New()
	router.POST("/upload", asUser(userID, handler.Upload))
	return router
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	writer.Close()
	return buf, writer.FormDataContentType()
}

func TestUploadHandlerAcceptsPDF(t *testing.T) {
	storage := &fakeStorage{}
	router := uploadRouter(storage, "user-1")

	body, contentType := multipartBody(t, "fahrzeugschein.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["file_url"] == "" {
		t.Error("Expected file_url in response")
	}
	if !strings.HasPrefix(storage.lastKey, "ocr/user-1/") {
		t.Errorf("Expected caller-scoped object key, got '%s'", storage.lastKey)
	}
	if !strings.HasSuffix(storage.lastKey, "_fahrzeugschein.pdf") {
		t.Errorf("Expected sanitized filename in key, got '%s'", storage.lastKey)
	}
}

func TestUploadHandlerRejectsDisallowedType(t *testing.T) {
	storage := &fakeStorage{}
	router := uploadRouter(storage, "user-1")

	body, contentType := multipartBody(t, "malware.exe", "application/x-msdownload", []byte("MZ"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if storage.lastKey != "" {
		t.Error("Expected nothing uploaded for a rejected type")
	}
}

func TestUploadHandlerRejectsOversizedFile(t *testing.T) {
	storage := &fakeStorage{}
	router := uploadRouter(storage, "user-1")

	big := bytes.Repeat([]byte("a"), maxUploadSize+1)
	body, contentType := multipartBody(t, "huge.png", "image/png", big)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestUploadHandlerRequiresFile(t *testing.T) {
	router := uploadRouter(&fakeStorage{}, "user-1")

	req := httptest.NewRequest("POST", "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=none")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"fahrzeugschein.pdf", "fahrzeugschein.pdf"},
		{"../../etc/passwd", "passwd"},
		{"my photo (1).jpg", "my_photo__1_.jpg"},
		{"..", "document"},
		{"", "document"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
