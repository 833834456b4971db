package repomanager

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. DB handles
// passed to it are ignored. It also acts as the dbx.TxRunner for its
// repositories: units of work are serialized, without rollback.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
	notes *notes.MemoryRepository
	txMu  sync.Mutex
}

// NewMemoryRepositoryManager builds an empty store. now may be nil.
func NewMemoryRepositoryManager(now func() time.Time) *MemoryRepositoryManager {
	if now == nil {
		now = time.Now
	}
	return &MemoryRepositoryManager{
		users: users.NewMemoryRepository(now),
		notes: notes.NewMemoryRepository(now),
	}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Notes(dbx.DBTX) notes.Repository { return m.notes }

func (m *MemoryRepositoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}
