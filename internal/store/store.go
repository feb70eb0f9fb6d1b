package store

import (
	"context"

	"github.com/rs/zerolog"
)

// Document is a stored record. Data holds the JSON encoding of the record without its ID;
// the ID is owned by the store.
type Document struct {
	ID   int
	Data []byte
}

// Store defines the interface for collections of documents with sequential integer IDs.
// Implementations may keep the data in process memory or in an external backend like Redis/Valkey.
// All implementations are safe for concurrent use.
type Store interface {
	// Get returns every document of the collection ordered by ascending ID.
	// An unknown collection is empty.
	Get(ctx context.Context, collection string) ([]Document, error)

	// GetByID returns a single document, or *apperrors.ErrNotFound.
	GetByID(ctx context.Context, collection string, id int) (Document, error)

	// Create stores data under the next ID of the collection and returns the new document.
	// IDs start at 1 and are never reused, even after deletes.
	Create(ctx context.Context, collection string, data []byte) (Document, error)

	// UpdateByID replaces the data of an existing document, or returns *apperrors.ErrNotFound.
	UpdateByID(ctx context.Context, collection string, id int, data []byte) (Document, error)

	// DeleteByID removes a document, or returns *apperrors.ErrNotFound.
	DeleteByID(ctx context.Context, collection string, id int) error

	// LastID returns the last ID handed out for the collection, 0 if none.
	LastID(ctx context.Context, collection string) (int, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Reset drops every document of the collection and restarts its ID sequence.
	Reset(ctx context.Context, collection string) error

	// Ping reports whether the backend is reachable. In-memory stores always succeed.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store (e.g., network connections).
	// For in-memory stores, this is a no-op.
	Close() error
}

// Logger receives error reports from store operations that are not returned to the caller.
type Logger interface {
	Error(msg string, err error)
}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger to the store Logger interface.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}
