// Package services contains application services for the kinlink client.
// This file defines the authentication service: online/offline login,
// register, logout and the locally cached identity of the signed-in user.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/kinlink/internal/client/client"
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/cryptox"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/logging"
)

const (
	keyUsername = "username"
	keySalt     = "salt"
	keyVerifier = "verifier"
	keySelf     = "self"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server, fetch the caller's own
//     identity and persist both for offline use.
//   - OfflineLogin: verify credentials against locally cached data.
//   - Register: create a new user (and their profile) on the server.
//   - Logout: drop the session and every piece of locally cached data.
//   - Self: the signed-in user's profile, read locally.
//   - CallerID: Self, falling back to WhoAmI while a session is open.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) ([]byte, error)
	OnlineLogin(ctx context.Context, username string, password []byte) ([]byte, error)
	Register(ctx context.Context, username string, password []byte, displayName string) (*models.SelfIdentity, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	ClearOfflineData(ctx context.Context) error
	CallerID(ctx context.Context) (string, error)
	Self(ctx context.Context) (*models.SelfIdentity, bool)
}

// Purger drops cached state that belongs to the signed-in user.
type Purger interface {
	Purge()
}

type Option func(*authService)

// WithPurger registers caches to be purged on logout.
func WithPurger(p ...Purger) Option {
	return func(a *authService) { a.purgers = append(a.purgers, p...) }
}

// authService is the concrete AuthService backed by a remote Client
// and a local SQL database for offline metadata.
type authService struct {
	client  client.Client
	db      *sql.DB
	logger  logging.Logger
	purgers []Purger

	mu   sync.RWMutex
	self *models.SelfIdentity
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB, logger logging.Logger, opts ...Option) AuthService {
	a := &authService{client: client, db: db, logger: logger.With("module", "auth")}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// OfflineLogin derives a master key from (password,salt) stored locally
// and verifies it against the locally cached verifier. Returns the master key
// on success. If local data is missing, returns client.ErrLocalDataNotAvailable;
// if verification fails, returns client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) ([]byte, error) {
	metadataRepo := a.getMetadataRepo()

	values, err := metadataRepo.GetMany(ctx, keyUsername, keySalt, keyVerifier)
	if err != nil {
		return nil, err
	}
	for _, k := range []string{keyUsername, keySalt, keyVerifier} {
		if values[k] == nil {
			return nil, client.ErrLocalDataNotAvailable
		}
	}

	if string(values[keyUsername]) != username {
		return nil, client.ErrUnauthorized
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, values[keySalt])
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if subtle.ConstantTimeCompare(values[keyVerifier], verifierCandidate) == 0 {
		return nil, client.ErrUnauthorized
	}
	return masterKeyCandidate, nil
}

// OnlineLogin authenticates against the server, saves offline metadata
// (username, salt, verifier, own identity), and returns the derived master
// key.
func (a *authService) OnlineLogin(ctx context.Context, userName string, password []byte) ([]byte, error) {
	salt, err := a.client.GetSalt(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, salt)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if err := a.client.Login(ctx, userName, verifierCandidate); err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	self, err := a.client.WhoAmI(ctx)
	if err != nil {
		return nil, fmt.Errorf("whoami error: %w", err)
	}

	if err := a.saveOfflineData(ctx, userName, salt, verifierCandidate, self); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}

	a.mu.Lock()
	a.self = self
	a.mu.Unlock()
	return masterKeyCandidate, nil
}

// saveOfflineData persists the data required for offline login in a single
// transaction.
func (a *authService) saveOfflineData(ctx context.Context, userName string, salt []byte, verifier []byte, self *models.SelfIdentity) error {
	selfJSON, err := json.Marshal(self)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			keyUsername: []byte(userName),
			keySalt:     salt,
			keyVerifier: verifier,
			keySelf:     selfJSON,
		})
	})
}

// Register creates a new account on the server. It generates a random salt,
// derives a master key from the provided password, computes a verifier,
// and sends salt/verifier to the server. The returned identity carries the
// share code of the profile created for the user.
func (a *authService) Register(ctx context.Context, username string, password []byte, displayName string) (*models.SelfIdentity, error) {
	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	self, err := a.client.Register(ctx, username, salt, verifier, displayName)
	if err != nil {
		return nil, err
	}
	return self, nil
}

// Logout forgets the session and everything cached for the user: offline
// credentials, the own identity, the pending deferred link and the
// permission cache.
func (a *authService) Logout(ctx context.Context) error {
	a.client.Logout()

	a.mu.Lock()
	a.self = nil
	a.mu.Unlock()

	for _, p := range a.purgers {
		p.Purge()
	}
	if err := a.ClearOfflineData(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// ClearOfflineData wipes locally cached metadata (e.g., on logout).
func (a *authService) ClearOfflineData(ctx context.Context) error {
	metadataRepo := a.getMetadataRepo()
	return metadataRepo.Clear(ctx)
}

// Self returns the signed-in user's identity, loading it from the metadata
// table on first use.
func (a *authService) Self(ctx context.Context) (*models.SelfIdentity, bool) {
	a.mu.RLock()
	self := a.self
	a.mu.RUnlock()
	if self != nil {
		cp := *self
		return &cp, true
	}

	raw, err := a.getMetadataRepo().Get(ctx, keySelf)
	if err != nil {
		a.logger.Warn(ctx, "failed to read own identity", "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var loaded models.SelfIdentity
	if err := json.Unmarshal(raw, &loaded); err != nil || loaded.ProfileID == "" {
		a.logger.Warn(ctx, "ignoring corrupt own identity", "error", err)
		return nil, false
	}

	a.mu.Lock()
	a.self = &loaded
	a.mu.Unlock()

	cp := loaded
	return &cp, true
}

// CallerID returns the signed-in user's profile id. When it is not known
// locally but a session is open, it is fetched with WhoAmI and cached. ""
// with a nil error means nobody is signed in.
func (a *authService) CallerID(ctx context.Context) (string, error) {
	if self, ok := a.Self(ctx); ok {
		return self.ProfileID, nil
	}
	if !a.client.HasSession() {
		return "", nil
	}

	self, err := a.client.WhoAmI(ctx)
	if err != nil {
		return "", fmt.Errorf("whoami: %w", err)
	}
	if self == nil || self.ProfileID == "" {
		return "", errors.New("whoami: empty identity")
	}

	if raw, err := json.Marshal(self); err == nil {
		if err := a.getMetadataRepo().Set(ctx, keySelf, raw); err != nil {
			a.logger.Warn(ctx, "failed to persist own identity", "error", err)
		}
	}

	cp := *self
	a.mu.Lock()
	a.self = &cp
	a.mu.Unlock()
	return self.ProfileID, nil
}
