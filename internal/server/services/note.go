package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/events"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
)

// NoteService scopes every note operation to the calling user. Notes owned by
// someone else are reported as common.ErrorNotFound, same as missing ones.
// Successful mutations are published to the events broker.
type NoteService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	events      events.Publisher
	logger      logging.Logger
}

func NewNoteService(db dbx.DBTX, m repomanager.RepositoryManager, publisher events.Publisher, logger logging.Logger) *NoteService {
	return &NoteService{
		db:          db,
		repomanager: m,
		events:      publisher,
		logger:      logger.With("module", "notes"),
	}
}

func (s *NoteService) publish(userID, noteID string, kind events.Kind) {
	s.events.Publish(events.Event{UserID: userID, NoteID: noteID, Kind: kind})
}

func (s *NoteService) List(ctx context.Context, userID, search string) ([]models.Note, error) {
	notes, err := s.repomanager.Notes(s.db).List(ctx, userID, models.NoteFilter{Search: search})
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	n, err := s.repomanager.Notes(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("error loading note: %w", err)
	}
	return n, nil
}

// Create requires both title and content.
func (s *NoteService) Create(ctx context.Context, userID, title, content string) (*models.Note, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, common.ErrorValidation
	}

	n, err := s.repomanager.Notes(s.db).Create(ctx, &models.Note{UserID: userID, Title: title, Content: content})
	if err != nil {
		return nil, fmt.Errorf("error creating note: %w", err)
	}

	s.publish(userID, n.ID, events.NoteCreated)
	return n, nil
}

// Update replaces title and content; empty values keep what is stored.
func (s *NoteService) Update(ctx context.Context, userID, id, title, content string) (*models.Note, error) {
	n, err := s.repomanager.Notes(s.db).Update(ctx, userID, id, title, content)
	if err != nil {
		return nil, fmt.Errorf("error updating note: %w", err)
	}

	s.publish(userID, n.ID, events.NoteUpdated)
	return n, nil
}

func (s *NoteService) TogglePin(ctx context.Context, userID, id string) (*models.Note, error) {
	n, err := s.repomanager.Notes(s.db).TogglePin(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("error pinning note: %w", err)
	}

	s.publish(userID, n.ID, events.NotePinned)
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Notes(s.db).Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("error deleting note: %w", err)
	}

	s.publish(userID, id, events.NoteDeleted)
	return nil
}
