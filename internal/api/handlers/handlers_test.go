package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soares-ari/helpdesk-ai/internal/api/middleware"
	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/internal/config"
	"github.com/soares-ari/helpdesk-ai/internal/ingest"
	"github.com/soares-ari/helpdesk-ai/internal/rag"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// ===========================
// Mock implementations
// ===========================

type mockDocRepo struct {
	documents map[int64]*storage.Document
	nextID    int64
	deleted   []int64
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{documents: make(map[int64]*storage.Document), nextID: 1}
}

func (m *mockDocRepo) Create(ctx context.Context, doc *storage.Document) error {
	doc.ID = m.nextID
	m.nextID++
	doc.UploadedAt = time.Now()
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockDocRepo) GetByID(ctx context.Context, id int64) (*storage.Document, error) {
	return m.documents[id], nil
}

func (m *mockDocRepo) ListByUser(ctx context.Context, userID int64) ([]storage.Document, error) {
	var docs []storage.Document
	for _, d := range m.documents {
		if d.UserID == userID {
			docs = append(docs, *d)
		}
	}
	return docs, nil
}

func (m *mockDocRepo) Delete(ctx context.Context, id int64) error {
	delete(m.documents, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockConvRepo struct {
	conversations map[int64]*storage.Conversation
	messages      map[int64][]storage.Message
}

func newMockConvRepo() *mockConvRepo {
	return &mockConvRepo{
		conversations: make(map[int64]*storage.Conversation),
		messages:      make(map[int64][]storage.Message),
	}
}

func (m *mockConvRepo) GetConversation(ctx context.Context, id int64) (*storage.Conversation, error) {
	return m.conversations[id], nil
}

func (m *mockConvRepo) ListByUser(ctx context.Context, userID int64) ([]storage.Conversation, error) {
	var convs []storage.Conversation
	for _, c := range m.conversations {
		if c.UserID == userID {
			convs = append(convs, *c)
		}
	}
	return convs, nil
}

func (m *mockConvRepo) GetMessages(ctx context.Context, conversationID int64) ([]storage.Message, error) {
	return m.messages[conversationID], nil
}

type mockObjectStorage struct {
	uploads   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{uploads: make(map[string][]byte)}
}

func (m *mockObjectStorage) UploadReader(ctx context.Context, reader io.Reader, size int64, path, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, _ := io.ReadAll(reader)
	m.uploads[path] = data
	return path, nil
}

func (m *mockObjectStorage) GenerateSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "https://storage.example/" + path, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *mockObjectStorage) Health(ctx context.Context) error { return nil }

type mockEnqueuer struct {
	jobs []ingest.Job
}

func (m *mockEnqueuer) Enqueue(job ingest.Job) {
	m.jobs = append(m.jobs, job)
}

type mockChecker struct{}

func (mockChecker) Supports(mediaType string) bool {
	return strings.HasPrefix(mediaType, "application/pdf") || strings.HasPrefix(mediaType, "text/")
}

type mockChatService struct {
	result *rag.ChatResult
	err    error
}

func (m *mockChatService) Chat(ctx context.Context, userID int64, conversationID *int64, message string) (*rag.ChatResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func uploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSizeMB:     1,
		AllowedMediaTypes: []string{"application/pdf", "text/plain", "text/markdown"},
	}
}

func testRouter(register func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity())
		register(r)
	})
	return r
}

func multipartBody(t *testing.T, filename, mediaType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	h["Content-Type"] = []string{mediaType}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

// ===========================
// Identity middleware
// ===========================

func TestIdentityRequired(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Get("/documents", ListDocuments(newMockDocRepo(), logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ===========================
// Documents
// ===========================

func TestUploadDocumentAccepted(t *testing.T) {
	docs := newMockDocRepo()
	objects := newMockObjectStorage()
	enq := &mockEnqueuer{}

	router := testRouter(func(r chi.Router) {
		r.Post("/documents", UploadDocument(docs, objects, enq, mockChecker{}, uploadConfig(), logger.Default()))
	})

	body, contentType := multipartBody(t, "faq.txt", "text/plain", []byte("How to reset a password."))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var doc storage.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, storage.StatusProcessing, doc.Status)
	assert.Equal(t, "faq.txt", doc.Filename)
	assert.Equal(t, int64(1), doc.UserID)

	require.Len(t, enq.jobs, 1)
	assert.Equal(t, doc.ID, enq.jobs[0].DocumentID)
	assert.Len(t, objects.uploads, 1)
}

func TestUploadDocumentRejectsMissingFile(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Post("/documents", UploadDocument(newMockDocRepo(), newMockObjectStorage(), &mockEnqueuer{}, mockChecker{}, uploadConfig(), logger.Default()))
	})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "no file here"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", "1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocumentRejectsUnsupportedMediaType(t *testing.T) {
	enq := &mockEnqueuer{}
	router := testRouter(func(r chi.Router) {
		r.Post("/documents", UploadDocument(newMockDocRepo(), newMockObjectStorage(), enq, mockChecker{}, uploadConfig(), logger.Default()))
	})

	body, contentType := multipartBody(t, "image.png", "image/png", []byte("binary"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, enq.jobs)
}

func TestUploadDocumentRejectsOversizedFile(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Post("/documents", UploadDocument(newMockDocRepo(), newMockObjectStorage(), &mockEnqueuer{}, mockChecker{}, uploadConfig(), logger.Default()))
	})

	// 1 MB limit, 3 MB payload.
	body, contentType := multipartBody(t, "big.txt", "text/plain", bytes.Repeat([]byte("x"), 3<<20))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetDocumentOwnership(t *testing.T) {
	docs := newMockDocRepo()
	require.NoError(t, docs.Create(context.Background(), &storage.Document{UserID: 2, Filename: "other.pdf"}))

	router := testRouter(func(r chi.Router) {
		r.Get("/documents/{id}", GetDocument(docs, logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents/99", nil)
	req.Header.Set("X-User-ID", "1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDocumentRemovesStoredFile(t *testing.T) {
	docs := newMockDocRepo()
	objects := newMockObjectStorage()
	require.NoError(t, docs.Create(context.Background(), &storage.Document{
		UserID: 1, Filename: "mine.pdf", StoragePath: "originals/abc/mine.pdf",
	}))

	router := testRouter(func(r chi.Router) {
		r.Delete("/documents/{id}", DeleteDocument(docs, objects, logger.Default()))
	})

	req := httptest.NewRequest(http.MethodDelete, "/documents/1", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"originals/abc/mine.pdf"}, objects.deleted)
	assert.Equal(t, []int64{1}, docs.deleted)
}

func TestDownloadDocumentReturnsSignedURL(t *testing.T) {
	docs := newMockDocRepo()
	require.NoError(t, docs.Create(context.Background(), &storage.Document{
		UserID: 1, Filename: "mine.pdf", StoragePath: "originals/abc/mine.pdf",
	}))

	router := testRouter(func(r chi.Router) {
		r.Get("/documents/{id}/download", DownloadDocument(docs, newMockObjectStorage(), logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/documents/1/download", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://storage.example/originals/abc/mine.pdf", resp["url"])
}

func TestListDocumentsEmpty(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Get("/documents", ListDocuments(newMockDocRepo(), logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

// ===========================
// Chat
// ===========================

func TestHandleChatSuccess(t *testing.T) {
	svc := &mockChatService{result: &rag.ChatResult{
		ConversationID: 5,
		Message: storage.Message{
			Role:    storage.RoleAssistant,
			Content: "Restart the VPN client.",
		},
	}}

	router := testRouter(func(r chi.Router) {
		r.Post("/chat", HandleChat(svc, logger.Default()))
	})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"How do I fix my VPN?"}`))
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result rag.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(5), result.ConversationID)
	assert.Equal(t, "Restart the VPN client.", result.Message.Content)
}

func TestHandleChatInvalidBody(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Post("/chat", HandleChat(&mockChatService{}, logger.Default()))
	})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", apperr.New(apperr.KindInvalidInput, "message must not be blank"), http.StatusBadRequest},
		{"not found", apperr.New(apperr.KindNotFound, "conversation 9 not found"), http.StatusNotFound},
		{"foreign conversation", apperr.New(apperr.KindOwnershipViolation, "not yours"), http.StatusForbidden},
		{"chat failure", apperr.New(apperr.KindChatFailure, "pipeline broke"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := testRouter(func(r chi.Router) {
				r.Post("/chat", HandleChat(&mockChatService{err: tc.err}, logger.Default()))
			})

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
			req.Header.Set("X-User-ID", "1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

// ===========================
// Conversations
// ===========================

func TestGetConversationMessagesOwnership(t *testing.T) {
	convs := newMockConvRepo()
	convs.conversations[1] = &storage.Conversation{ID: 1, UserID: 2}
	convs.messages[1] = []storage.Message{{ID: 10, ConversationID: 1, Role: storage.RoleUser, Content: "hi"}}

	router := testRouter(func(r chi.Router) {
		r.Get("/conversations/{id}/messages", GetConversationMessages(convs, logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/conversations/1/messages", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/conversations/1/messages", nil)
	req.Header.Set("X-User-ID", "2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []storage.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestListConversationsEmpty(t *testing.T) {
	router := testRouter(func(r chi.Router) {
		r.Get("/conversations", ListConversations(newMockConvRepo(), logger.Default()))
	})

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

// ===========================
// Health
// ===========================

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyCheck(okPinger{}, newMockObjectStorage())(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
