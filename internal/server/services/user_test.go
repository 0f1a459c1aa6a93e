package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/server/auth"
	"github.com/dmitrijs2005/kinlink/internal/server/config"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/profiles"
	usersrepo "github.com/dmitrijs2005/kinlink/internal/server/repositories/users"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userTestNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newUserService builds a service for paths that never open a transaction.
func newUserService(t *testing.T, rm *fakeRepoManager) (*UserService, *timex.FakeClock) {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	clock := timex.NewFakeClock(userTestNow)
	return NewUserService(nil, rm, cfg, clock), clock
}

func stubShareCodes(t *testing.T, codes ...string) {
	t.Helper()
	old := newShareCode
	t.Cleanup(func() { newShareCode = old })
	newShareCode = func() (string, error) {
		if len(codes) == 0 {
			return "", errBoom{}
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func TestRegister_CreatesProfileAndUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	stubShareCodes(t, "abc12")
	rm := &fakeRepoManager{u: &fakeUsersRepo{}, p: newFakeProfiles()}
	cfg := &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour, RefreshTokenValidityDuration: time.Hour}
	s := NewUserService(db, rm, cfg, timex.NewFakeClock(userTestNow))

	u, p, err := s.Register(context.Background(), "alice", []byte("salt"), []byte("verifier"), "Alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotNil(t, p)

	assert.Equal(t, "abc12", p.ShareCode)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, p.ID, u.ProfileID)
	assert.Equal(t, "alice", u.UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_RetriesOnShareCodeCollision(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	stubShareCodes(t, "aaaaa", "bbbbb")
	prof := newFakeProfiles()
	prof.createErrs = []error{profiles.ErrShareCodeTaken, nil}
	rm := &fakeRepoManager{u: &fakeUsersRepo{}, p: prof}
	s := NewUserService(db, rm, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, p, err := s.Register(context.Background(), "alice", []byte("s"), []byte("v"), "")
	require.NoError(t, err)
	assert.Equal(t, "bbbbb", p.ShareCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_GivesUpAfterRepeatedCollisions(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	stubShareCodes(t, "aaaaa", "bbbbb", "ccccc", "ddddd", "eeeee")
	prof := newFakeProfiles()
	for range shareCodeAttempts {
		prof.createErrs = append(prof.createErrs, profiles.ErrShareCodeTaken)
	}
	rm := &fakeRepoManager{u: &fakeUsersRepo{}, p: prof}
	s := NewUserService(db, rm, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, _, err := s.Register(context.Background(), "alice", []byte("s"), []byte("v"), "")
	require.ErrorIs(t, err, common.ErrorInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	stubShareCodes(t, "abc12")
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: usersrepo.ErrUserExists}, p: newFakeProfiles()}
	s := NewUserService(db, rm, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, _, err := s.Register(context.Background(), "alice", []byte("s"), []byte("v"), "")
	require.ErrorIs(t, err, ErrUserExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_OtherErrorIsWrapped(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	stubShareCodes(t, "abc12")
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}, p: newFakeProfiles()}
	s := NewUserService(db, rm, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, _, err := s.Register(context.Background(), "alice", []byte("s"), []byte("v"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating user")
	assert.True(t, errors.As(err, new(errBoom)))
}

func TestRegister_ValidatesInput(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{})
	_, _, err := s.Register(context.Background(), "", []byte("s"), []byte("v"), "")
	require.ErrorIs(t, err, common.ErrInvalidFormat)

	_, _, err = s.Register(context.Background(), "bob", nil, []byte("v"), "")
	require.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestGetSalt(t *testing.T) {
	ctx := context.Background()

	s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLogin: &models.User{Salt: []byte("stored")}}})
	salt, err := s.GetSalt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), salt)

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{}})
	salt, err = s.GetSalt(ctx, "ghost")
	require.NoError(t, err)
	assert.Len(t, salt, 32, "unknown users get a random salt")

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLoginErr: errBoom{}}})
	_, err = s.GetSalt(ctx, "alice")
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "u-1", ProfileID: "p-1", Verifier: []byte("good")}

	t.Run("ok", func(t *testing.T) {
		rt := &fakeRefreshRepo{}
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLogin: user}, rt: rt})

		pair, err := s.Login(ctx, "alice", []byte("good"))
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Len(t, rt.created, 1)
		assert.Equal(t, userTestNow.Add(2*time.Hour), rt.created[0])

		sub, err := auth.ParseToken(pair.AccessToken, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, auth.Subject{UserID: "u-1", ProfileID: "p-1"}, sub)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLogin: user}, rt: &fakeRefreshRepo{}})
		_, err := s.Login(ctx, "alice", []byte("bad"))
		require.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{}})
		_, err := s.Login(ctx, "ghost", []byte("good"))
		require.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("db error", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLoginErr: errBoom{}}})
		_, err := s.Login(ctx, "alice", []byte("good"))
		require.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("token store fails", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{byLogin: user}, rt: &fakeRefreshRepo{createErr: errBoom{}}})
		_, err := s.Login(ctx, "alice", []byte("good"))
		require.ErrorIs(t, err, common.ErrorInternal)
	})
}

func TestRefreshToken_Rotates(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rt := &fakeRefreshRepo{found: &models.RefreshToken{UserID: "u-1", Token: "old", Expires: userTestNow.Add(time.Minute)}}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byID: &models.User{ID: "u-1", ProfileID: "p-1"}}, rt: rt}
	s := NewUserService(db, rm, &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}, timex.NewFakeClock(userTestNow))

	pair, err := s.RefreshToken(context.Background(), "old")
	require.NoError(t, err)
	assert.NotEqual(t, "old", pair.RefreshToken)
	assert.Equal(t, []string{"old"}, rt.deleted)
	assert.Len(t, rt.created, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_Expired(t *testing.T) {
	rt := &fakeRefreshRepo{found: &models.RefreshToken{UserID: "u-1", Token: "old", Expires: userTestNow}}
	s, _ := newUserService(t, &fakeRepoManager{rt: rt})

	_, err := s.RefreshToken(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
	assert.Equal(t, []string{"old"}, rt.deleted, "expired tokens are removed")
}

func TestRefreshToken_Unknown(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{rt: &fakeRefreshRepo{}})
	_, err := s.RefreshToken(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	s, _ = newUserService(t, &fakeRepoManager{rt: &fakeRefreshRepo{findErr: errBoom{}}})
	_, err = s.RefreshToken(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRefreshToken_DeleteFailsRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rt := &fakeRefreshRepo{found: &models.RefreshToken{UserID: "u-1", Expires: userTestNow.Add(time.Hour)}, delErr: errBoom{}}
	s := NewUserService(db, &fakeRepoManager{rt: rt}, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, err := s.RefreshToken(context.Background(), "old")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error deleting refresh token")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_SpentConcurrently(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rt := &fakeRefreshRepo{found: &models.RefreshToken{UserID: "u-1", Expires: userTestNow.Add(time.Hour)}, delErr: common.ErrorNotFound}
	s := NewUserService(db, &fakeRepoManager{rt: rt}, &config.Config{SecretKey: "k"}, timex.NewFakeClock(userTestNow))

	_, err := s.RefreshToken(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, rt.created, "no new pair for a spent token")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredTokens(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{rt: &fakeRefreshRepo{purged: 3}})
	n, err := s.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
