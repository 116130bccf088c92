package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"chat-backend/internal/models"
	ws "chat-backend/internal/websocket"
)

// stubObjectStore keeps uploaded bytes in memory.
type stubObjectStore struct {
	objects map[string][]byte
}

func newStubObjectStore() *stubObjectStore {
	return &stubObjectStore{objects: map[string][]byte{}}
}

func (s *stubObjectStore) UploadFile(_ context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	objectName := "attachments/stub-" + file.Filename
	s.objects[objectName] = data
	return objectName, nil
}

func (s *stubObjectStore) DownloadFile(_ context.Context, objectName string) (io.ReadCloser, minio.ObjectInfo, error) {
	data, ok := s.objects[objectName]
	if !ok {
		return nil, minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	info := minio.ObjectInfo{Key: objectName, Size: int64(len(data)), ContentType: "text/plain"}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func newFileFixture(store ObjectStore) *FileHandler {
	pipeline := ws.NewPipeline(&stubMessageStore{}, stubMemberships{}, ws.NewDispatcher(ws.NewRegistry(), nil))
	return NewFileHandler(store, pipeline)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write multipart body: %v", err)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadAttachmentStoresDownloadPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStubObjectStore()
	handler := newFileFixture(store)

	body, contentType := multipartUpload(t, "report.pdf", "pdf bytes")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/chats/42/attachments", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set("user_id", uint(1))

	handler.UploadAttachment(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL == nil {
		t.Fatal("expected the message to carry an attachment URL")
	}
	if !strings.HasPrefix(*resp.URL, attachmentURLPrefix) {
		t.Fatalf("expected a %s path, got %s", attachmentURLPrefix, *resp.URL)
	}

	objectName := strings.TrimPrefix(*resp.URL, attachmentURLPrefix)
	if _, ok := store.objects[objectName]; !ok {
		t.Fatalf("the URL must resolve to the stored object, got %s", objectName)
	}
}

func TestDownloadServesStoredBytes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStubObjectStore()
	store.objects["attachments/stub-report.pdf"] = []byte("pdf bytes")
	handler := newFileFixture(store)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/files/attachments/stub-report.pdf", nil)
	c.Params = gin.Params{{Key: "object", Value: "/attachments/stub-report.pdf"}}
	c.Set("user_id", uint(1))

	handler.Download(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "pdf bytes" {
		t.Fatalf("expected the stored bytes, got %q", w.Body.String())
	}
	if disp := w.Header().Get("Content-Disposition"); !strings.Contains(disp, "stub-report.pdf") {
		t.Fatalf("expected a file name in the disposition, got %q", disp)
	}
}

func TestDownloadRejectsForeignObjectNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newFileFixture(newStubObjectStore())

	for _, object := range []string{"/secrets/key.pem", "/attachments/../secrets/key.pem"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/files/x", nil)
		c.Params = gin.Params{{Key: "object", Value: object}}
		c.Set("user_id", uint(1))

		handler.Download(c)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %q, got %d", object, w.Code)
		}
	}
}
