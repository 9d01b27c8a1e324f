package services

import (
	"context"
	"io"
	"time"

	"cmcs-claims/internal/core/domain"
)

// StoredDocument describes a file held by a DocumentStore
type StoredDocument struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

// DocumentStore keeps claim supporting documents. Refs are relative
// file names, never absolute paths.
type DocumentStore interface {
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
	List() ([]StoredDocument, error)
}

// SessionStore keeps sessions with a sliding idle timeout
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session, ttl time.Duration) error
	// Get returns domain.ErrSessionNotFound for unknown or expired sessions
	Get(ctx context.Context, id string) (*domain.Session, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// SessionPurger is implemented by stores that expire entries lazily
type SessionPurger interface {
	PurgeExpired() int
}

// ReportRenderer writes an invoice report in one output format
type ReportRenderer interface {
	ContentType() string
	Extension() string
	Render(w io.Writer, report *InvoiceReport) error
}
