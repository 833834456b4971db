package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/config"
	"github.com/dmitrijs2005/gophnotes/internal/server/events"
	"github.com/dmitrijs2005/gophnotes/internal/server/mailer"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *outbox) last() mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[len(o.msgs)-1]
}

type stack struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
	broker  *events.Broker
	mail    *outbox
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	m := repomanager.NewMemoryRepositoryManager(nil)
	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenValidity)
	broker := events.NewBroker(8)
	t.Cleanup(broker.Close)
	mail := &outbox{}

	users := services.NewUserService(nil, m, m, tokens, auth.NewHasher(bcrypt.MinCost, 2), mail, cfg, logging.Nop{})
	notes := services.NewNoteService(nil, m, broker, logging.Nop{})

	s := NewServer(Options{
		Users:       users,
		Notes:       notes,
		Tokens:      tokens,
		Events:      broker,
		CORSOrigins: cfg.CORSOrigins,
	})
	return &stack{handler: s.Handler(), tokens: tokens, broker: broker, mail: mail}
}

func (st *stack) register(t *testing.T, name, email, password string) sessionResponse {
	t.Helper()
	rec := do(t, st.handler, http.MethodPost, "/api/auth/register", "",
		registerRequest{Name: name, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[sessionResponse](t, rec)
}

func TestEndToEndNotesAreOwnerScoped(t *testing.T) {
	st := newStack(t)

	a := st.register(t, "A", "a@x.com", "pw1")

	rec := do(t, st.handler, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@x.com", Password: "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[sessionResponse](t, rec)

	regID, err := st.tokens.Verify(a.Token)
	require.NoError(t, err)
	loginID, err := st.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, regID.UserID, loginID.UserID)
	assert.Equal(t, regID.Email, loginID.Email)
	assert.Equal(t, a.User.ID, regID.UserID)

	rec = do(t, st.handler, http.MethodPost, "/api/notes", a.Token, noteRequest{Title: "T", Content: "C"})
	require.Equal(t, http.StatusCreated, rec.Code)
	note := decode[models.Note](t, rec)
	assert.Equal(t, a.User.ID, note.UserID)
	assert.False(t, note.IsPinned)

	b := st.register(t, "B", "b@x.com", "pw2")

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/notes/" + note.ID},
		{http.MethodPut, "/api/notes/" + note.ID},
		{http.MethodPut, "/api/notes/" + note.ID + "/pin"},
		{http.MethodDelete, "/api/notes/" + note.ID},
	} {
		rec = do(t, st.handler, rt.method, rt.path, b.Token, noteRequest{Title: "X"})
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", rt.method, rt.path)
		assert.Equal(t, "Note not found", message(t, rec))
	}

	rec = do(t, st.handler, http.MethodGet, "/api/notes", b.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	// A's note is untouched by B's attempts
	rec = do(t, st.handler, http.MethodGet, "/api/notes/"+note.ID, a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Note](t, rec)
	assert.Equal(t, "T", got.Title)
	assert.False(t, got.IsPinned)

	rec = do(t, st.handler, http.MethodPut, "/api/notes/"+note.ID+"/pin", a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Note](t, rec).IsPinned)

	rec = do(t, st.handler, http.MethodPut, "/api/notes/"+note.ID, a.Token, noteRequest{Content: "C2"})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[models.Note](t, rec)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C2", got.Content)

	rec = do(t, st.handler, http.MethodDelete, "/api/notes/"+note.ID, a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, st.handler, http.MethodGet, "/api/notes/"+note.ID, a.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndToEndPasswordReset(t *testing.T) {
	st := newStack(t)
	st.register(t, "A", "a@x.com", "pw1")

	rec := do(t, st.handler, http.MethodPost, "/api/auth/forgot-password", "", forgotPasswordRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	msg := st.mail.last()
	assert.Equal(t, "a@x.com", msg.To)
	code := regexp.MustCompile(`\b(\d{6})\b`).FindStringSubmatch(msg.Body)
	require.Len(t, code, 2)

	rec = do(t, st.handler, http.MethodPost, "/api/auth/reset-password", "",
		resetPasswordRequest{Email: "a@x.com", Token: code[1], Password: "pw9"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// single use
	rec = do(t, st.handler, http.MethodPost, "/api/auth/reset-password", "",
		resetPasswordRequest{Email: "a@x.com", Token: code[1], Password: "pw10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password reset token is invalid or has expired.", message(t, rec))

	rec = do(t, st.handler, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@x.com", Password: "pw1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, st.handler, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@x.com", Password: "pw9"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, st.handler, http.MethodPost, "/api/auth/forgot-password", "", forgotPasswordRequest{Email: "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndToEndDuplicateRegistration(t *testing.T) {
	st := newStack(t)
	st.register(t, "A", "a@x.com", "pw1")

	rec := do(t, st.handler, http.MethodPost, "/api/auth/register", "",
		registerRequest{Name: "A2", Email: "a@x.com", Password: "pw2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", message(t, rec))
}

func TestEventStream(t *testing.T) {
	st := newStack(t)
	srv := httptest.NewServer(st.handler)
	defer srv.Close()

	a := st.register(t, "A", "a@x.com", "pw1")
	b := st.register(t, "B", "b@x.com", "pw2")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notes/events?token=" + a.Token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.Eventually(t, func() bool {
		return st.broker.Subscribers(a.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// B's activity is not visible on A's stream
	rec := do(t, st.handler, http.MethodPost, "/api/notes", b.Token, noteRequest{Title: "B", Content: "b"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, st.handler, http.MethodPost, "/api/notes", a.Token, noteRequest{Title: "A", Content: "a"})
	require.Equal(t, http.StatusCreated, rec.Code)
	note := decode[models.Note](t, rec)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.NoteCreated, e.Kind)
	assert.Equal(t, note.ID, e.NoteID)

	st.broker.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestEventStreamRejectsBadToken(t *testing.T) {
	st := newStack(t)
	srv := httptest.NewServer(st.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notes/events?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEndToEndMultibytePasswordOverByteLimit(t *testing.T) {
	st := newStack(t)
	long := strings.Repeat("é", 40) // 40 runes, 80 bytes

	rec := do(t, st.handler, http.MethodPost, "/api/auth/register", "",
		registerRequest{Name: "A", Email: "a@x.com", Password: long})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", message(t, rec))

	st.register(t, "A", "a@x.com", strings.Repeat("é", 36))

	rec = do(t, st.handler, http.MethodPost, "/api/auth/forgot-password", "", forgotPasswordRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := regexp.MustCompile(`\b(\d{6})\b`).FindStringSubmatch(st.mail.last().Body)
	require.Len(t, code, 2)

	rec = do(t, st.handler, http.MethodPost, "/api/auth/reset-password", "",
		resetPasswordRequest{Email: "a@x.com", Token: code[1], Password: long})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", message(t, rec))

	// the code survives the rejected attempt
	rec = do(t, st.handler, http.MethodPost, "/api/auth/reset-password", "",
		resetPasswordRequest{Email: "a@x.com", Token: code[1], Password: "pw9"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
