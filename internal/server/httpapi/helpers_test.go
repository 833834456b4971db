package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/events"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// ---- fakes ----

type fakeUsers struct {
	session   *services.Session
	err       error
	profile   *models.Profile
	lastEmail string
}

func (f *fakeUsers) Register(_ context.Context, _, email, _ string) (*services.Session, error) {
	f.lastEmail = email
	return f.session, f.err
}
func (f *fakeUsers) Login(_ context.Context, email, _ string) (*services.Session, error) {
	f.lastEmail = email
	return f.session, f.err
}
func (f *fakeUsers) Profile(context.Context, string) (*models.Profile, error) {
	return f.profile, f.err
}
func (f *fakeUsers) RequestReset(_ context.Context, email string) error {
	f.lastEmail = email
	return f.err
}
func (f *fakeUsers) RedeemReset(_ context.Context, email, _, _ string) error {
	f.lastEmail = email
	return f.err
}

type fakeNotes struct {
	note       *models.Note
	list       []models.Note
	err        error
	lastUserID string
	lastID     string
	lastSearch string
}

func (f *fakeNotes) List(_ context.Context, userID, search string) ([]models.Note, error) {
	f.lastUserID, f.lastSearch = userID, search
	return f.list, f.err
}
func (f *fakeNotes) Get(_ context.Context, userID, id string) (*models.Note, error) {
	f.lastUserID, f.lastID = userID, id
	return f.note, f.err
}
func (f *fakeNotes) Create(_ context.Context, userID, _, _ string) (*models.Note, error) {
	f.lastUserID = userID
	return f.note, f.err
}
func (f *fakeNotes) Update(_ context.Context, userID, id, _, _ string) (*models.Note, error) {
	f.lastUserID, f.lastID = userID, id
	return f.note, f.err
}
func (f *fakeNotes) TogglePin(_ context.Context, userID, id string) (*models.Note, error) {
	f.lastUserID, f.lastID = userID, id
	return f.note, f.err
}
func (f *fakeNotes) Delete(_ context.Context, userID, id string) error {
	f.lastUserID, f.lastID = userID, id
	return f.err
}

// ---- helpers ----

func newTestServer(u UserService, n NoteService) *Server {
	return NewServer(Options{
		Users:       u,
		Notes:       n,
		Tokens:      auth.NewTokenIssuer(testSecret, time.Hour),
		Events:      events.NewBroker(4),
		CORSOrigins: []string{"*"},
	})
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.NewTokenIssuer(testSecret, time.Hour).Issue(auth.Identity{UserID: userID, Email: userID + "@x.io"})
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[messageResponse](t, rec).Message
}
