package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.List(r.Context(), identity(r).UserID, r.URL.Query().Get("search"))
	if err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := s.notes.Create(r.Context(), identity(r).UserID, req.Title, req.Content)
	if err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.notes.Get(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := s.notes.Update(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	n, err := s.notes.TogglePin(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), identity(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.writeNoteError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Note deleted successfully")
}
