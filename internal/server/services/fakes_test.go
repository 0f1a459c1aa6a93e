package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/shareevents"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// -------- users --------

type fakeUsersRepo struct {
	users.Repository

	createErr error
	created   []*models.User

	byLogin    *models.User
	byLoginErr error

	byID    *models.User
	byIDErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := *u
	out.ID = "u-1"
	f.created = append(f.created, &out)
	return &out, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if f.byLoginErr != nil {
		return nil, f.byLoginErr
	}
	if f.byLogin == nil {
		return nil, common.ErrorNotFound
	}
	return f.byLogin, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	if f.byID == nil {
		return nil, common.ErrorNotFound
	}
	return f.byID, nil
}

// -------- refresh tokens --------

type fakeRefreshRepo struct {
	refreshtokens.Repository

	found   *models.RefreshToken
	findErr error

	deleted []string
	delErr  error

	createErr error
	created   []time.Time

	purged int64
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, expiresAt)
	return &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}, nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.found == nil {
		return nil, common.ErrorNotFound
	}
	return f.found, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.delErr
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.purged, nil
}

// -------- profiles --------

type fakeProfilesRepo struct {
	profiles.Repository

	byID map[string]*models.Profile

	createErrs []error
	created    []*models.Profile

	err error
}

func newFakeProfiles(ps ...*models.Profile) *fakeProfilesRepo {
	f := &fakeProfilesRepo{byID: map[string]*models.Profile{}}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfilesRepo) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := *p
	out.Version = 1
	f.created = append(f.created, &out)
	return &out, nil
}

func (f *fakeProfilesRepo) find(match func(*models.Profile) bool) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfilesRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return f.find(func(p *models.Profile) bool { return p.ID == id })
}

func (f *fakeProfilesRepo) GetByShareCode(ctx context.Context, code string) (*models.Profile, error) {
	return f.find(func(p *models.Profile) bool { return p.ShareCode == code })
}

func (f *fakeProfilesRepo) GetByLegacyID(ctx context.Context, legacyID string) (*models.Profile, error) {
	return f.find(func(p *models.Profile) bool { return p.LegacyID != "" && p.LegacyID == legacyID })
}

func (f *fakeProfilesRepo) GetMany(ctx context.Context, ids []string) ([]*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Profile
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProfilesRepo) List(ctx context.Context, limit int) ([]*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Profile
	for _, p := range f.byID {
		if len(out) == limit {
			break
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// -------- permissions --------

type fakePermissionsRepo struct {
	permissions.Repository
	rows map[[2]string]models.PermissionLevel
	err  error
}

func (f *fakePermissionsRepo) Find(ctx context.Context, callerID, targetID string) (*models.Permission, error) {
	if f.err != nil {
		return nil, f.err
	}
	lvl, ok := f.rows[[2]string{callerID, targetID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Permission{CallerID: callerID, TargetID: targetID, Level: lvl}, nil
}

// -------- share events --------

type fakeShareEventsRepo struct {
	shareevents.Repository
	stored map[string]*models.ShareEvent
	err    error
}

func (f *fakeShareEventsRepo) Create(ctx context.Context, ev *models.ShareEvent) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.stored == nil {
		f.stored = map[string]*models.ShareEvent{}
	}
	if _, ok := f.stored[ev.ID]; ok {
		return false, nil
	}
	cp := *ev
	f.stored[ev.ID] = &cp
	return true, nil
}

// -------- manager --------

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u  *fakeUsersRepo
	rt *fakeRefreshRepo
	p  *fakeProfilesRepo
	pm *fakePermissionsRepo
	se *fakeShareEventsRepo
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.rt }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository           { return m.p }
func (m *fakeRepoManager) Permissions(dbx.DBTX) permissions.Repository     { return m.pm }
func (m *fakeRepoManager) ShareEvents(dbx.DBTX) shareevents.Repository     { return m.se }

// -------- recorder / limiter / photos --------

type fakeMetrics struct {
	mu        sync.Mutex
	lookups   []string
	levels    []string
	accepted  int
	throttled int
}

func (f *fakeMetrics) LookupResult(r string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, r)
}

func (f *fakeMetrics) PermissionEvaluated(l string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels, l)
}

func (f *fakeMetrics) ShareEventAccepted()    { f.mu.Lock(); f.accepted++; f.mu.Unlock() }
func (f *fakeMetrics) ShareEventThrottled()   { f.mu.Lock(); f.throttled++; f.mu.Unlock() }
func (f *fakeMetrics) LandingRedirect(string) {}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (f *fakeLimiter) Allow(key string) bool {
	f.keys = append(f.keys, key)
	return f.allow
}

type fakePhotos struct {
	err error
}

func (f fakePhotos) URL(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if key == "" {
		return "", nil
	}
	return "https://photos.test/" + key + "?sig=1", nil
}
