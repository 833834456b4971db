package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/mailer"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	notesrepo "github.com/dmitrijs2005/gophnotes/internal/server/repositories/notes"
	usersrepo "github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

// fakeUsersRepo returns canned results; zero values mean "not configured".
type fakeUsersRepo struct {
	getOut    *models.User
	getErr    error
	createErr error
	setErr    error
	redeemErr error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "u-new"
	return u, nil
}
func (f *fakeUsersRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return f.getOut, f.getErr
}
func (f *fakeUsersRepo) GetByID(context.Context, string) (*models.User, error) {
	return f.getOut, f.getErr
}
func (f *fakeUsersRepo) SetResetCode(context.Context, string, string, time.Time) error {
	return f.setErr
}
func (f *fakeUsersRepo) RedeemReset(context.Context, string, string, string, time.Time) error {
	return f.redeemErr
}

type fakeNotesRepo struct {
	err error
}

func (f *fakeNotesRepo) List(context.Context, string, models.NoteFilter) ([]models.Note, error) {
	return nil, f.err
}
func (f *fakeNotesRepo) Get(context.Context, string, string) (*models.Note, error) {
	return nil, f.err
}
func (f *fakeNotesRepo) Create(context.Context, *models.Note) (*models.Note, error) {
	return nil, f.err
}
func (f *fakeNotesRepo) Update(context.Context, string, string, string, string) (*models.Note, error) {
	return nil, f.err
}
func (f *fakeNotesRepo) TogglePin(context.Context, string, string) (*models.Note, error) {
	return nil, f.err
}
func (f *fakeNotesRepo) Delete(context.Context, string, string) error {
	return f.err
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	n *fakeNotesRepo
}

func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) Notes(dbx.DBTX) notesrepo.Repository { return m.n }

// fakeTx runs fn directly without a transaction.
type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

// captureMailer records messages; err, when set, fails every send.
type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (c *captureMailer) Send(_ context.Context, m mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *captureMailer) last() mailer.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}
