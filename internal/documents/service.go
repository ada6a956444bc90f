package documents

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"ats-backend/internal/extract"
	"ats-backend/internal/profile"
	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
}

// Upload checks the file against the document policy, saves it to object
// storage and records it. size is the declared length of r.
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, size int64, r io.Reader) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if strings.TrimSpace(fileName) == "" {
		return Document{}, &profile.ValidationError{Field: "file", Reason: "file name is required"}
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Document{}, fmt.Errorf("read document head: %w", err)
	}
	if err := profile.CheckDocument(size, contentType, head); err != nil {
		return Document{}, err
	}

	digest := sha256.New()
	body := io.TeeReader(io.LimitReader(br, profile.MaxDocumentBytes), digest)
	obj, err := s.Store.Save(ctx, userID, fileName, body)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        fileName,
		MimeType:        profile.MimePDF,
		SizeBytes:       obj.Size,
		SHA256:          hex.EncodeToString(digest.Sum(nil)),
		StorageProvider: s.StorageProvider,
		StorageKey:      obj.Key,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, fmt.Errorf("%w: user id and document id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Current returns the latest document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

// List returns documents for a user newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete hides a document from its owner. Analyses that already used it are
// kept.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	if userID == "" || documentID == "" {
		return fmt.Errorf("%w: user id and document id required", ErrInvalidInput)
	}
	if err := s.Repo.Delete(ctx, userID, documentID, time.Now().UTC()); err != nil {
		return err
	}
	telemetry.InfoContext(ctx, "document.deleted", map[string]any{"document_id": documentID, "user_id": userID})
	return nil
}

// Text returns the extracted text of a stored document. Extraction runs once;
// later calls read the cached copy.
func (s *Service) Text(ctx context.Context, userID, documentID string) (string, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	text, err := extract.StoredPDFText(ctx, s.Store, doc.StorageKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		telemetry.ErrorContext(ctx, "document.extract_failed", map[string]any{
			"document_id": doc.ID,
			"user_id":     userID,
			"error":       err.Error(),
		})
		return "", &profile.ValidationError{Field: "file", Reason: "document text could not be extracted"}
	}
	if !doc.TextCached() {
		if err := s.Repo.UpdateExtraction(ctx, userID, doc.ID, extract.TextKey(doc.StorageKey), time.Now().UTC()); err != nil {
			telemetry.ErrorContext(ctx, "document.extract_record_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}
	return text, nil
}
