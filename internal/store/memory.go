package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
)

func init() {
	Register("memory", newMemoryStore)
}

type memoryCollection struct {
	docs   map[int][]byte
	lastID int
}

// memoryStore keeps every collection in process memory. Data is copied on the way in and
// on the way out so callers can never alias stored bytes.
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func newMemoryStore(_ ProviderConfig) (Store, error) {
	return &memoryStore{
		collections: make(map[string]*memoryCollection),
	}, nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// collection returns the named collection, creating it when missing. Callers hold the write lock.
func (m *memoryStore) collection(name string) *memoryCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[int][]byte)}
		m.collections[name] = c
	}
	return c
}

func (m *memoryStore) Get(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(c.docs))
	for id, data := range c.docs {
		docs = append(docs, Document{ID: id, Data: cloneBytes(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *memoryStore) GetByID(_ context.Context, collection string, id int) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.collections[collection]; ok {
		if data, ok := c.docs[id]; ok {
			return Document{ID: id, Data: cloneBytes(data)}, nil
		}
	}
	return Document{}, apperrors.NewNotFoundError(collection, id)
}

func (m *memoryStore) Create(_ context.Context, collection string, data []byte) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	c.lastID++
	c.docs[c.lastID] = cloneBytes(data)
	return Document{ID: c.lastID, Data: cloneBytes(data)}, nil
}

func (m *memoryStore) UpdateByID(_ context.Context, collection string, id int, data []byte) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return Document{}, apperrors.NewNotFoundError(collection, id)
	}
	if _, ok := c.docs[id]; !ok {
		return Document{}, apperrors.NewNotFoundError(collection, id)
	}
	c.docs[id] = cloneBytes(data)
	return Document{ID: id, Data: cloneBytes(data)}, nil
}

func (m *memoryStore) DeleteByID(_ context.Context, collection string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return apperrors.NewNotFoundError(collection, id)
	}
	if _, ok := c.docs[id]; !ok {
		return apperrors.NewNotFoundError(collection, id)
	}
	delete(c.docs, id)
	return nil
}

func (m *memoryStore) LastID(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.collections[collection]; ok {
		return c.lastID, nil
	}
	return 0, nil
}

func (m *memoryStore) Count(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.collections[collection]; ok {
		return len(c.docs), nil
	}
	return 0, nil
}

func (m *memoryStore) Reset(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
	return nil
}

func (m *memoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}
