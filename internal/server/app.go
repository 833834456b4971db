// Package server wires the notes server together: storage backend (PostgreSQL
// or in-memory), password hashing, session tokens, mail delivery, the note
// event broker and the HTTP API, and runs it until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/config"
	"github.com/dmitrijs2005/gophnotes/internal/server/events"
	"github.com/dmitrijs2005/gophnotes/internal/server/httpapi"
	"github.com/dmitrijs2005/gophnotes/internal/server/mailer"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"golang.org/x/time/rate"
)

const (
	authRateInterval = 6 * time.Second
	authRateBurst    = 10
	storageTimeout   = 30 * time.Second
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	broker     *events.Broker
	httpServer *httpapi.Server
}

type storage struct {
	db      *sql.DB
	tx      dbx.TxRunner
	manager repomanager.RepositoryManager
}

func openStorage(ctx context.Context, c *config.Config, logger logging.Logger) (*storage, error) {
	if c.Storage == config.StorageMemory {
		logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		m := repomanager.NewMemoryRepositoryManager(nil)
		return &storage{tx: m, manager: m}, nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return &storage{db: db, tx: dbx.SQLTxRunner{DB: db}, manager: m}, nil
}

func newMailer(c *config.Config, logger logging.Logger) mailer.Sender {
	if c.SMTPHost == "" {
		return mailer.NewLogSender(logger)
	}
	return mailer.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword)
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	st, err := openStorage(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	// st.db is a nil *sql.DB in memory mode; the memory repositories ignore it
	var db dbx.DBTX
	if st.db != nil {
		db = st.db
	}

	tokens := auth.NewTokenIssuer(c.SecretKey, c.TokenValidity)
	hasher := auth.NewHasher(c.BcryptCost, c.HashWorkers)
	broker := events.NewBroker(0)

	us := services.NewUserService(db, st.tx, st.manager, tokens, hasher, newMailer(c, logger), c, logger)
	ns := services.NewNoteService(db, st.manager, broker, logger)

	hs := httpapi.NewServer(httpapi.Options{
		Address:         c.HTTPAddr,
		Users:           us,
		Notes:           ns,
		Tokens:          tokens,
		Events:          broker,
		Logger:          logger,
		CORSOrigins:     c.CORSOrigins,
		AuthRate:        rate.Every(authRateInterval),
		AuthBurst:       authRateBurst,
		ShutdownTimeout: c.ShutdownTimeout,
	})

	return &App{config: c, logger: logger, db: st.db, broker: broker, httpServer: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes event streams and the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()

	// websocket streams are hijacked and not tracked by http.Server.Shutdown
	app.broker.Close()

	wg.Wait()

	if err := app.closeDBIfNeeded(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}

	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) closeDBIfNeeded() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}
