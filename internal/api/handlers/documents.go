package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soares-ari/helpdesk-ai/internal/api/middleware"
	"github.com/soares-ari/helpdesk-ai/internal/config"
	"github.com/soares-ari/helpdesk-ai/internal/ingest"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// downloadURLExpiry is how long a presigned download link stays valid.
const downloadURLExpiry = 15 * time.Minute

// UploadDocument accepts a multipart upload, stores the original file and
// queues ingestion. The response is 202: chunking and embedding happen in
// the background and the document starts in PROCESSING state.
func UploadDocument(
	docs DocumentRepository,
	objects ObjectStorage,
	enqueuer IngestEnqueuer,
	checker MediaTypeChecker,
	cfg config.UploadConfig,
	log *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxFileSizeBytes()+(1<<20))
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				RespondError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooBig,
					fmt.Sprintf("file exceeds the %d MB limit", cfg.MaxFileSizeMB))
				return
			}
			RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart request")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "file field is required")
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSizeBytes() {
			RespondError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooBig,
				fmt.Sprintf("file exceeds the %d MB limit", cfg.MaxFileSizeMB))
			return
		}

		mediaType := header.Header.Get("Content-Type")
		if !cfg.MediaTypeAllowed(mediaType) || !checker.Supports(mediaType) {
			RespondError(w, http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unsupported media type: %s", mediaType))
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "failed to read file")
			return
		}

		doc := &storage.Document{
			UserID:      userID,
			Filename:    header.Filename,
			FileSize:    int64(len(data)),
			MimeType:    mediaType,
			Status:      storage.StatusProcessing,
			StoragePath: fmt.Sprintf("%s/%s/%s", storage.PathOriginals, uuid.NewString(), header.Filename),
		}
		if err := docs.Create(r.Context(), doc); err != nil {
			log.WithError(err).Error("failed to create document")
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}

		if _, err := objects.UploadReader(r.Context(), bytes.NewReader(data), int64(len(data)), doc.StoragePath, mediaType); err != nil {
			log.WithError(err).Error("failed to store original file", "document_id", doc.ID)
			if delErr := docs.Delete(r.Context(), doc.ID); delErr != nil {
				log.WithError(delErr).Error("failed to clean up document", "document_id", doc.ID)
			}
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to store file")
			return
		}

		enqueuer.Enqueue(ingest.NewJob(doc.ID, header.Filename, mediaType, data))

		log.Info("document upload accepted",
			"document_id", doc.ID,
			"user_id", userID,
			"filename", header.Filename,
			"size", len(data),
		)

		RespondJSON(w, http.StatusAccepted, doc)
	}
}

// ListDocuments returns the caller's documents.
func ListDocuments(docs DocumentRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		list, err := docs.ListByUser(r.Context(), userID)
		if err != nil {
			log.WithError(err).Error("failed to list documents")
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}
		if list == nil {
			list = []storage.Document{}
		}
		RespondJSON(w, http.StatusOK, list)
	}
}

// GetDocument returns one of the caller's documents.
func GetDocument(docs DocumentRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwnedDocument(w, r, docs, log)
		if !ok {
			return
		}
		RespondJSON(w, http.StatusOK, doc)
	}
}

// DeleteDocument removes a document, its chunks (via cascade) and its
// stored original.
func DeleteDocument(docs DocumentRepository, objects ObjectStorage, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwnedDocument(w, r, docs, log)
		if !ok {
			return
		}

		if doc.StoragePath != "" {
			if err := objects.Delete(r.Context(), doc.StoragePath); err != nil {
				log.WithError(err).Warn("failed to delete stored file", "document_id", doc.ID)
			}
		}

		if err := docs.Delete(r.Context(), doc.ID); err != nil {
			log.WithError(err).Error("failed to delete document", "document_id", doc.ID)
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DownloadDocument returns a short-lived presigned URL for the original file.
func DownloadDocument(docs DocumentRepository, objects ObjectStorage, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwnedDocument(w, r, docs, log)
		if !ok {
			return
		}

		if doc.StoragePath == "" {
			RespondError(w, http.StatusNotFound, ErrCodeNotFound, "document has no stored file")
			return
		}

		url, err := objects.GenerateSignedURL(r.Context(), doc.StoragePath, downloadURLExpiry)
		if err != nil {
			log.WithError(err).Error("failed to presign download", "document_id", doc.ID)
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}

		RespondJSON(w, http.StatusOK, map[string]any{
			"url":                url,
			"expires_in_seconds": int(downloadURLExpiry.Seconds()),
		})
	}
}

// loadOwnedDocument fetches the document in the URL and enforces ownership.
// It writes the error response itself when the document cannot be served.
func loadOwnedDocument(w http.ResponseWriter, r *http.Request, docs DocumentRepository, log *logger.Logger) (*storage.Document, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid document id")
		return nil, false
	}

	doc, err := docs.GetByID(r.Context(), id)
	if err != nil {
		log.WithError(err).Error("failed to load document", "document_id", id)
		RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
		return nil, false
	}
	if doc == nil {
		RespondError(w, http.StatusNotFound, ErrCodeNotFound, "document not found")
		return nil, false
	}
	if doc.UserID != middleware.UserID(r.Context()) {
		RespondError(w, http.StatusForbidden, ErrCodeForbidden, "access denied")
		return nil, false
	}
	return doc, true
}
