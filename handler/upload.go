package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/s-ciobanu-r/jora-webapp/middleware"
)

// maxUploadSize caps vehicle document uploads at 15 MiB.
const maxUploadSize = 15 << 20

// allowedUploadTypes maps accepted MIME types to canonical extensions.
var allowedUploadTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
}

// ObjectStorage stores an uploaded document and returns a presigned URL
// the extraction provider can read it from.
type ObjectStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error)
}

type UploadHandler struct {
	storage ObjectStorage
}

func NewUploadHandler(storage ObjectStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename keeps object keys flat and printable. Path separators
// and anything exotic collapse to underscores.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := unsafeKeyChars.ReplaceAllString(base, "_")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "document"
	}
	return cleaned
}

// Upload accepts a vehicle document for OCR extraction.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the 15MB limit"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		// Sniff from the first bytes when the client didn't say.
		buffer := make([]byte, 512)
		n, err := file.Read(buffer)
		if err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		contentType = http.DetectContentType(buffer[:n])
	}
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])

	if _, ok := allowedUploadTypes[contentType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, PNG, JPEG and WEBP files are allowed"})
		return
	}

	objectKey := fmt.Sprintf("ocr/%s/%s_%s", userID, uuid.New().String(), sanitizeFilename(header.Filename))

	fileURL, err := h.storage.Upload(c.Request.Context(), objectKey, io.LimitReader(file, maxUploadSize), header.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_url": fileURL,
		"filename": header.Filename,
	})
}
