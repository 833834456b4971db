// Package notes stores notes. Every lookup except Create is keyed by both the
// note id and the owner id, so another user's note behaves exactly like a
// missing one: common.ErrorNotFound.
package notes

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

type Repository interface {
	// List returns the owner's notes, pinned first, then most recently updated.
	List(ctx context.Context, userID string, filter models.NoteFilter) ([]models.Note, error)
	Get(ctx context.Context, userID, id string) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	// Update replaces title and content; an empty value keeps the stored one.
	Update(ctx context.Context, userID, id, title, content string) (*models.Note, error)
	TogglePin(ctx context.Context, userID, id string) (*models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}
