// Package shows provides typed access to the shows collection of a store.
package shows

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
	"github.com/Belphemur/ShowTracker/internal/models"
	"github.com/Belphemur/ShowTracker/internal/store"
)

// Collection is the store collection holding shows.
const Collection = "shows"

// record is the stored form of a show; the ID lives in the store document.
type record struct {
	Name         string `json:"name"`
	EpisodesSeen int    `json:"episodes_seen"`
}

// Repository defines the operations the API performs on shows
type Repository interface {
	List(ctx context.Context) ([]models.Show, error)
	Get(ctx context.Context, id int) (models.Show, error)
	Create(ctx context.Context, name string, episodesSeen int) (models.Show, error)
	Update(ctx context.Context, id int, input models.ShowInput) (models.Show, error)
	Delete(ctx context.Context, id int) error
	LastID(ctx context.Context) (int, error)
	Seed(ctx context.Context, shows []models.Show) error
}

// repository implements Repository on top of a store.Store.
// writeMu serializes every write so a read-merge-write cycle, or a create followed by its
// re-fetch, is never interleaved with another write from this process.
type repository struct {
	store   store.Store
	writeMu sync.Mutex
}

// NewRepository creates a Repository backed by s
func NewRepository(s store.Store) Repository {
	return &repository{store: s}
}

func decode(doc store.Document) (models.Show, error) {
	var rec record
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return models.Show{}, fmt.Errorf("failed to decode show %d: %w", doc.ID, err)
	}
	return models.Show{ID: doc.ID, Name: rec.Name, EpisodesSeen: rec.EpisodesSeen}, nil
}

func encode(name string, episodesSeen int) ([]byte, error) {
	data, err := json.Marshal(record{Name: name, EpisodesSeen: episodesSeen})
	if err != nil {
		return nil, fmt.Errorf("failed to encode show: %w", err)
	}
	return data, nil
}

func (r *repository) List(ctx context.Context) ([]models.Show, error) {
	docs, err := r.store.Get(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}

	shows := make([]models.Show, 0, len(docs))
	for _, doc := range docs {
		show, err := decode(doc)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	return shows, nil
}

func (r *repository) Get(ctx context.Context, id int) (models.Show, error) {
	doc, err := r.store.GetByID(ctx, Collection, id)
	if err != nil {
		return models.Show{}, fmt.Errorf("failed to get show %d: %w", id, err)
	}
	return decode(doc)
}

// Create stores a new show and returns it as re-read from the store under its assigned ID.
func (r *repository) Create(ctx context.Context, name string, episodesSeen int) (models.Show, error) {
	data, err := encode(name, episodesSeen)
	if err != nil {
		return models.Show{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.store.Create(ctx, Collection, data)
	if err != nil {
		return models.Show{}, fmt.Errorf("failed to create show: %w", err)
	}
	return r.Get(ctx, doc.ID)
}

// Update merges the set fields of input into the stored show. Missing and empty fields keep
// their stored value.
func (r *repository) Update(ctx context.Context, id int, input models.ShowInput) (models.Show, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current, err := r.Get(ctx, id)
	if err != nil {
		return models.Show{}, err
	}

	merged := input.Apply(current)
	data, err := encode(merged.Name, merged.EpisodesSeen)
	if err != nil {
		return models.Show{}, err
	}

	doc, err := r.store.UpdateByID(ctx, Collection, id, data)
	if err != nil {
		return models.Show{}, fmt.Errorf("failed to update show %d: %w", id, err)
	}
	return decode(doc)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.DeleteByID(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete show %d: %w", id, err)
	}
	return nil
}

func (r *repository) LastID(ctx context.Context) (int, error) {
	id, err := r.store.LastID(ctx, Collection)
	if err != nil {
		return 0, fmt.Errorf("failed to read last show id: %w", err)
	}
	return id, nil
}

// Seed creates the given shows in order. IDs of the input are ignored; the store assigns them.
func (r *repository) Seed(ctx context.Context, shows []models.Show) error {
	for _, show := range shows {
		if show.Name == "" {
			return apperrors.NewValidationError(models.FieldName, models.MsgNameEmpty)
		}
		if _, err := r.Create(ctx, show.Name, show.EpisodesSeen); err != nil {
			return fmt.Errorf("failed to seed show %q: %w", show.Name, err)
		}
	}
	return nil
}
