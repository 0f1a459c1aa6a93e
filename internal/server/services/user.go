// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/server/auth"
	"github.com/dmitrijs2005/kinlink/internal/server/config"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/kinlink/internal/server/repositories/users"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/google/uuid"
)

// shareCodeAttempts bounds the retries on a share code collision.
const shareCodeAttempts = 5

// ErrUserExists is returned by Register for a taken username.
var ErrUserExists = errors.New("user already exists")

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
// - Register: create a user together with the profile it owns
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	clock                        timex.Clock
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock) *UserService {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		clock:                        clock,
	}
}

// newShareCode is a seam for share code generation.
var newShareCode = func() (string, error) {
	return common.MakeRandShareCode(5)
}

// Register creates the user's profile and then the user, in one transaction.
// The profile gets a fresh uuid and a random share code.
func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte, displayName string) (*models.User, *models.Profile, error) {
	if username == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, nil, fmt.Errorf("%w: username, salt and verifier are required", common.ErrInvalidFormat)
	}

	var (
		user    *models.User
		profile *models.Profile
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.createProfile(ctx, tx, displayName)
		if err != nil {
			return err
		}

		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			UserName:  username,
			Salt:      salt,
			Verifier:  verifier,
			ProfileID: p.ID,
		})
		if err != nil {
			return err
		}

		user, profile = u, p
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorInternal) || errors.Is(err, common.ErrInvalidFormat) {
			return nil, nil, err
		}
		if errors.Is(err, usersrepo.ErrUserExists) {
			return nil, nil, ErrUserExists
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, profile, nil
}

func (s *UserService) createProfile(ctx context.Context, tx dbx.DBTX, displayName string) (*models.Profile, error) {
	repo := s.repomanager.Profiles(tx)
	id := uuid.NewString()

	for range shareCodeAttempts {
		code, err := newShareCode()
		if err != nil {
			return nil, common.ErrorInternal
		}
		if !identifier.ValidateShareCode(code) {
			return nil, common.ErrorInternal
		}

		p, err := repo.Create(ctx, &models.Profile{ID: id, ShareCode: code, DisplayName: displayName})
		if errors.Is(err, profiles.ErrShareCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("no free share code after %d attempts: %w", shareCodeAttempts, common.ErrorInternal)
}

// GetSalt returns the user's stored salt or a random salt if the user is absent,
// to avoid leaking existence through timing.
func (s *UserService) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.getRandomSalt(), nil
		}
		return nil, common.ErrorInternal
	}
	return user.Salt, nil
}

// Login verifies the provided verifierCandidate against the stored verifier and,
// on success, returns a new TokenPair.
func (s *UserService) Login(ctx context.Context, userName string, verifierCandidate []byte) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !s.checkVerifier(user.Verifier, verifierCandidate) {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens are removed and yield
// ErrRefreshTokenExpired; unknown ones ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expired(s.clock.Now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// spent by a concurrent rotation
				return nil, common.ErrorUnauthorized
			}
			return nil, fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return nil, fmt.Errorf("error loading token owner: %w", err)
		}
		return s.generateTokenPair(ctx, user, tx)
	})
}

// PurgeExpiredTokens drops refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.clock.Now())
}

// --- helpers below ---

func (s *UserService) getRandomSalt() []byte { return common.GenerateRandByteArray(32) }

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(auth.Subject{UserID: user.ID, ProfileID: user.ProfileID}, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) checkVerifier(verifier []byte, candidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.clock.Now().Add(s.refreshTokenValidityDuration)
	if _, err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, expires); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
