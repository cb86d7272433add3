package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"esg-gap-backend/internal/extract"
	"esg-gap-backend/internal/shared/storage/object"
	"esg-gap-backend/internal/shared/telemetry"
)

// DefaultMaxBytes caps a single uploaded report.
const DefaultMaxBytes = 50 << 20

// Service stores report PDFs and records their metadata.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
	MaxBytes        int64
	Logger          telemetry.Logger
	Now             func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() telemetry.Logger {
	if s.Logger == nil {
		return telemetry.Std()
	}
	return s.Logger
}

// Upload validates a PDF, saves it to object storage and records it.
func (s *Service) Upload(ctx context.Context, userId, fileName string, r io.Reader) (Document, error) {
	if strings.TrimSpace(userId) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != ".pdf" {
		return Document{}, ErrUnsupportedType
	}

	maxBytes := s.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Document{}, ErrTooLarge
	}

	info, err := extract.InspectPDF(data)
	if err != nil {
		if errors.Is(err, extract.ErrNotPDF) || errors.Is(err, extract.ErrUnreadable) {
			return Document{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		return Document{}, err
	}

	storageKey, size, _, err := s.Store.Save(ctx, userId, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("save document: %w", err)
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MimeType:        info.MimeType,
		SizeBytes:       size,
		PageCount:       info.Pages,
		StorageProvider: s.StorageProvider,
		StorageKey:      storageKey,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}

	fields := map[string]any{
		"document_id": doc.ID,
		"user_id":     userId,
		"pages":       info.Pages,
		"size_bytes":  size,
	}
	if info.HasText() {
		s.logger().Info("document.uploaded", fields)
	} else {
		s.logger().Warn("document.uploaded.no_text_layer", fields)
	}
	return doc, nil
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	if userId == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userId, documentID)
}

// Current returns the user's most recent document.
func (s *Service) Current(ctx context.Context, userId string) (Document, error) {
	if userId == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetCurrentByUser(ctx, userId)
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if userId == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}
