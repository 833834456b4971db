package notes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a Repository held in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	notes map[string]*models.Note
	now   func() time.Time
}

func NewMemoryRepository(now func() time.Time) *MemoryRepository {
	return &MemoryRepository{notes: make(map[string]*models.Note), now: now}
}

// owned returns the stored note only if userID owns it. Caller holds mu.
func (r *MemoryRepository) owned(userID, id string) (*models.Note, bool) {
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return nil, false
	}
	return n, true
}

func matches(n *models.Note, search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(n.Title), s) || strings.Contains(strings.ToLower(n.Content), s)
}

func (r *MemoryRepository) List(_ context.Context, userID string, filter models.NoteFilter) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []models.Note{}
	for _, n := range r.notes {
		if n.UserID == userID && matches(n, filter.Search) {
			result = append(result, *n)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	return result, nil
}

func (r *MemoryRepository) Get(_ context.Context, userID, id string) (*models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.owned(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *n
	return &c, nil
}

func (r *MemoryRepository) Create(_ context.Context, note *models.Note) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := r.now()
	note.CreatedAt, note.UpdatedAt = now, now

	c := *note
	r.notes[note.ID] = &c
	return note, nil
}

func (r *MemoryRepository) Update(_ context.Context, userID, id, title, content string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.owned(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	if title != "" {
		n.Title = title
	}
	if content != "" {
		n.Content = content
	}
	n.UpdatedAt = r.now()

	c := *n
	return &c, nil
}

func (r *MemoryRepository) TogglePin(_ context.Context, userID, id string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.owned(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	n.IsPinned = !n.IsPinned
	n.UpdatedAt = r.now()

	c := *n
	return &c, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owned(userID, id); !ok {
		return common.ErrorNotFound
	}
	delete(r.notes, id)
	return nil
}
