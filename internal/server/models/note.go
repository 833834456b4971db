package models

import "time"

// Note is a short text note. UserID is the owner and never changes after creation.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteFilter narrows a note listing. Search matches title or content,
// case-insensitively, as a plain substring.
type NoteFilter struct {
	Search string
}
