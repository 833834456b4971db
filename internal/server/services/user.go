// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, profile lookup and the
// password reset flow.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/config"
	"github.com/dmitrijs2005/gophnotes/internal/server/mailer"
	"github.com/dmitrijs2005/gophnotes/internal/server/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
)

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token string
	User  models.Profile
}

// UserService provides authentication-related operations:
// - Register / Login: create or verify credentials and mint a session token
// - Profile: the caller's public record
// - RequestReset / RedeemReset: one-time code password recovery
type UserService struct {
	db            dbx.DBTX
	tx            dbx.TxRunner
	repomanager   repomanager.RepositoryManager
	tokens        *auth.TokenIssuer
	hasher        *auth.Hasher
	mailer        mailer.Sender
	mailFrom      string
	resetValidity time.Duration
	now           func() time.Time
	logger        logging.Logger
}

// NewUserService wires a UserService. db is the default handle for single
// statements; tx runs multi-statement units of work.
func NewUserService(db dbx.DBTX, tx dbx.TxRunner, m repomanager.RepositoryManager, tokens *auth.TokenIssuer,
	hasher *auth.Hasher, sender mailer.Sender, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:            db,
		tx:            tx,
		repomanager:   m,
		tokens:        tokens,
		hasher:        hasher,
		mailer:        sender,
		mailFrom:      cfg.MailFrom,
		resetValidity: cfg.ResetCodeValidity,
		now:           time.Now,
		logger:        logger.With("module", "users"),
	}
}

// WithClock replaces the time source used for reset code expiry.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func authEvent(event, outcome string) {
	metrics.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// Register creates a user and signs them in. A taken email yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var user *models.User
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		user, err = repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hash})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			authEvent("register", "duplicate")
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	authEvent("register", "ok")
	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.session(user)
}

// Login checks credentials. Unknown email and wrong password both yield
// common.ErrorUnauthorized after the same amount of bcrypt work.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.CompareDummy(ctx, password)
			authEvent("login", "invalid")
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := s.compare(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		authEvent("login", "invalid")
		return nil, common.ErrorUnauthorized
	}

	authEvent("login", "ok")
	return s.session(user)
}

// Profile returns the public record of userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	p := user.Profile()
	return &p, nil
}

// RequestReset stores a fresh 6-digit code for email, replacing any pending
// one, and mails it. An unknown email yields common.ErrorNotFound.
func (s *UserService) RequestReset(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			authEvent("reset_request", "unknown")
			return common.ErrorNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	code, err := common.NewResetCode()
	if err != nil {
		return fmt.Errorf("error generating reset code: %w", err)
	}

	if err := repo.SetResetCode(ctx, user.ID, code, s.now().Add(s.resetValidity)); err != nil {
		return fmt.Errorf("error storing reset code: %w", err)
	}

	if err := s.mailer.Send(ctx, mailer.PasswordResetMessage(s.mailFrom, user.Email, code)); err != nil {
		s.logger.Error(ctx, "reset mail not sent", "user_id", user.ID, "error", err)
		return fmt.Errorf("error sending reset mail: %w", err)
	}

	authEvent("reset_request", "ok")
	return nil
}

// RedeemReset sets a new password if code is the unexpired pending code for
// email, clearing it in the same write. Anything else yields
// common.ErrResetCodeInvalid. Existing session tokens are not revoked.
func (s *UserService) RedeemReset(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	now := s.now()

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			authEvent("reset_redeem", "invalid")
			return common.ErrResetCodeInvalid
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if !user.HasResetPending(now) || subtle.ConstantTimeCompare([]byte(*user.ResetCode), []byte(code)) != 1 {
		authEvent("reset_redeem", "invalid")
		return common.ErrResetCodeInvalid
	}

	hash, err := s.hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := repo.RedeemReset(ctx, email, code, hash, now); err != nil {
		if errors.Is(err, common.ErrResetCodeInvalid) {
			authEvent("reset_redeem", "invalid")
			return common.ErrResetCodeInvalid
		}
		return fmt.Errorf("error storing password: %w", err)
	}

	authEvent("reset_redeem", "ok")
	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// --- helpers below ---

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("%w: issuing token: %v", common.ErrorInternal, err)
	}
	return &Session{Token: token, User: user.Profile()}, nil
}

func (s *UserService) hash(ctx context.Context, password string) (string, error) {
	start := time.Now()
	defer func() { metrics.PasswordHashDurationSeconds.WithLabelValues("hash").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Hash(ctx, password)
}

func (s *UserService) compare(ctx context.Context, hash, password string) (bool, error) {
	start := time.Now()
	defer func() { metrics.PasswordHashDurationSeconds.WithLabelValues("compare").Observe(time.Since(start).Seconds()) }()
	return s.hasher.Compare(ctx, hash, password)
}
