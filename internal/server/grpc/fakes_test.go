package grpc

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeUser struct {
	refreshResp *services.TokenPair
	refreshErr  error

	regProfile *models.Profile
	regErr     error
	regName    string

	saltResp []byte
	saltErr  error

	loginResp *services.TokenPair
	loginErr  error
}

func (f *fakeUser) RefreshToken(ctx context.Context, refresh string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}
func (f *fakeUser) Register(ctx context.Context, username string, salt, verifier []byte, displayName string) (*models.User, *models.Profile, error) {
	f.regName = displayName
	if f.regErr != nil {
		return nil, nil, f.regErr
	}
	return &models.User{ID: "u-1", UserName: username, ProfileID: f.regProfile.ID}, f.regProfile, nil
}
func (f *fakeUser) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.saltResp, f.saltErr
}
func (f *fakeUser) Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

type fakeRegistry struct {
	whoUser string
	whoResp *models.Profile
	whoErr  error

	lookupID   identifier.LinkIdentifier
	lookupResp *models.Profile
	lookupErr  error

	evalCaller string
	evalTarget string
	evalResp   models.PermissionLevel
	evalErr    error

	fetchIDs  []string
	fetchResp []*services.ProfileView
	fetchErr  error

	listLimit int
	listResp  []*services.ProfileView
	listErr   error

	scanner  string
	recorded *models.ShareEvent
	recErr   error
}

func (f *fakeRegistry) WhoAmI(ctx context.Context, userID string) (*models.Profile, error) {
	f.whoUser = userID
	return f.whoResp, f.whoErr
}
func (f *fakeRegistry) Lookup(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error) {
	f.lookupID = id
	return f.lookupResp, f.lookupErr
}
func (f *fakeRegistry) Evaluate(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error) {
	f.evalCaller, f.evalTarget = callerID, targetID
	return f.evalResp, f.evalErr
}
func (f *fakeRegistry) FetchProfiles(ctx context.Context, ids []string) ([]*services.ProfileView, error) {
	f.fetchIDs = ids
	return f.fetchResp, f.fetchErr
}
func (f *fakeRegistry) ListProfiles(ctx context.Context, limit int) ([]*services.ProfileView, error) {
	f.listLimit = limit
	return f.listResp, f.listErr
}
func (f *fakeRegistry) RecordShareEvent(ctx context.Context, scannerID string, ev *models.ShareEvent) error {
	f.scanner = scannerID
	f.recorded = ev
	return f.recErr
}

func newServer(u userSvc, r registrySvc) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, u, r, "k")
}
