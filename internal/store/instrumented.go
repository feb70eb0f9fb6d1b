package store

import (
	"context"
	"errors"
	"time"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
)

// instrumentedStore wraps a Store and records Prometheus metrics for every operation
// under the given group label.
type instrumentedStore struct {
	inner Store
	group string
}

// newInstrumentedStore wraps inner with metric instrumentation for the given group.
// A lazy documents collector is registered for the given collections.
func newInstrumentedStore(inner Store, group string, collections []string, logger Logger) *instrumentedStore {
	if len(collections) > 0 {
		registerDocumentsCollector(group, inner, collections, logger)
	}
	return &instrumentedStore{inner: inner, group: group}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, &apperrors.ErrNotFound{}):
		return "not_found"
	default:
		return "error"
	}
}

// observe records the outcome of one operation started at start.
func (s *instrumentedStore) observe(operation string, start time.Time, err error) {
	OperationDuration.WithLabelValues(s.group, operation).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(s.group, operation, resultLabel(err)).Inc()
}

func (s *instrumentedStore) Get(ctx context.Context, collection string) ([]Document, error) {
	start := time.Now()
	docs, err := s.inner.Get(ctx, collection)
	s.observe("get", start, err)
	return docs, err
}

func (s *instrumentedStore) GetByID(ctx context.Context, collection string, id int) (Document, error) {
	start := time.Now()
	doc, err := s.inner.GetByID(ctx, collection, id)
	s.observe("get_by_id", start, err)
	return doc, err
}

func (s *instrumentedStore) Create(ctx context.Context, collection string, data []byte) (Document, error) {
	start := time.Now()
	doc, err := s.inner.Create(ctx, collection, data)
	s.observe("create", start, err)
	return doc, err
}

func (s *instrumentedStore) UpdateByID(ctx context.Context, collection string, id int, data []byte) (Document, error) {
	start := time.Now()
	doc, err := s.inner.UpdateByID(ctx, collection, id, data)
	s.observe("update_by_id", start, err)
	return doc, err
}

func (s *instrumentedStore) DeleteByID(ctx context.Context, collection string, id int) error {
	start := time.Now()
	err := s.inner.DeleteByID(ctx, collection, id)
	s.observe("delete_by_id", start, err)
	return err
}

func (s *instrumentedStore) LastID(ctx context.Context, collection string) (int, error) {
	start := time.Now()
	id, err := s.inner.LastID(ctx, collection)
	s.observe("last_id", start, err)
	return id, err
}

func (s *instrumentedStore) Count(ctx context.Context, collection string) (int, error) {
	return s.inner.Count(ctx, collection)
}

func (s *instrumentedStore) Reset(ctx context.Context, collection string) error {
	start := time.Now()
	err := s.inner.Reset(ctx, collection)
	s.observe("reset", start, err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close unregisters the documents collector and closes the underlying store.
func (s *instrumentedStore) Close() error {
	unregisterDocumentsCollector(s.group)
	return s.inner.Close()
}
