package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/metrics"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
)

const (
	// MaxListLimit caps ListProfiles.
	MaxListLimit = 5000
	// MaxFetchIDs caps FetchProfiles.
	MaxFetchIDs = 200

	// maxClockSkew is how far in the future a client may date an event.
	maxClockSkew = 5 * time.Minute
)

// Share methods accepted on events.
var shareMethods = map[string]bool{"scan": true, "link": true, "share": true, "invite": true}

// PhotoSigner turns a storage key into a URL a client can load.
type PhotoSigner interface {
	URL(ctx context.Context, key string) (string, error)
}

// Limiter throttles share events per key.
type Limiter interface {
	Allow(key string) bool
}

// ProfileView is a profile as sent to clients. Enriched views carry a
// sanitized biography and a presigned photo URL.
type ProfileView struct {
	Profile  *models.Profile
	Enriched bool
	PhotoURL string
}

// RegistryService answers profile, permission and share event queries.
type RegistryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      PermissionPolicy
	sanitizer   *bluemonday.Policy
	photos      PhotoSigner
	limiter     Limiter
	metrics     metrics.Recorder
	clock       timex.Clock
	logger      logging.Logger
}

// RegistryDeps wires a RegistryService. Metrics and Clock may be nil.
type RegistryDeps struct {
	DB      *sql.DB
	Repos   repomanager.RepositoryManager
	Policy  PermissionPolicy
	Photos  PhotoSigner
	Limiter Limiter
	Metrics metrics.Recorder
	Clock   timex.Clock
	Logger  logging.Logger
}

func NewRegistryService(d RegistryDeps) *RegistryService {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}

	sanitizer := bluemonday.UGCPolicy()
	sanitizer.RequireNoReferrerOnLinks(true)

	return &RegistryService{
		db:          d.DB,
		repomanager: d.Repos,
		policy:      d.Policy,
		sanitizer:   sanitizer,
		photos:      d.Photos,
		limiter:     d.Limiter,
		metrics:     d.Metrics,
		clock:       d.Clock,
		logger:      d.Logger.With("module", "registry"),
	}
}

// WhoAmI returns the profile owned by userID.
func (s *RegistryService) WhoAmI(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.repomanager.Profiles(s.db).GetByID(ctx, user.ProfileID)
}

// Lookup finds a profile by share code or legacy id. A value that is both a
// valid share code and a valid legacy id is tried as a share code first.
// Deleted profiles are returned as they are.
func (s *RegistryService) Lookup(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error) {
	repo := s.repomanager.Profiles(s.db)

	var (
		p   *models.Profile
		err error
	)
	switch id.Kind {
	case identifier.KindShareCode:
		p, err = repo.GetByShareCode(ctx, id.Value)
		if errors.Is(err, common.ErrorNotFound) && identifier.ValidateLegacyID(id.Value) {
			p, err = repo.GetByLegacyID(ctx, strings.ToUpper(id.Value))
		}
	case identifier.KindLegacy:
		p, err = repo.GetByLegacyID(ctx, id.Value)
	default:
		return nil, common.ErrInvalidFormat
	}

	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.metrics.LookupResult("not_found")
		return nil, err
	case err != nil:
		s.metrics.LookupResult("error")
		return nil, err
	case p.IsDeleted():
		s.metrics.LookupResult("deleted")
	default:
		s.metrics.LookupResult("found")
	}
	return p, nil
}

// Evaluate returns callerID's level on targetID. callerID is "" for
// anonymous callers.
func (s *RegistryService) Evaluate(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error) {
	if uuid.Validate(targetID) != nil {
		return "", common.ErrorNotFound
	}
	if _, err := s.repomanager.Profiles(s.db).GetByID(ctx, targetID); err != nil {
		return "", err
	}

	var explicit *models.Permission
	if callerID != "" {
		p, err := s.repomanager.Permissions(s.db).Find(ctx, callerID, targetID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return "", err
		default:
			if !p.Level.Valid() {
				s.logger.Warn(ctx, "ignoring unknown permission level", "caller", callerID, "target", targetID, "level", p.Level)
			}
			explicit = p
		}
	}

	level := s.policy.Decide(callerID, targetID, explicit)
	s.metrics.PermissionEvaluated(string(level))
	return level, nil
}

// FetchProfiles returns enriched views of the profiles among ids that
// exist. Malformed ids are skipped.
func (s *RegistryService) FetchProfiles(ctx context.Context, ids []string) ([]*ProfileView, error) {
	if len(ids) > MaxFetchIDs {
		return nil, fmt.Errorf("%w: at most %d ids per call", common.ErrInvalidFormat, MaxFetchIDs)
	}

	seen := make(map[string]bool, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] || uuid.Validate(id) != nil {
			continue
		}
		seen[id] = true
		valid = append(valid, id)
	}

	found, err := s.repomanager.Profiles(s.db).GetMany(ctx, valid)
	if err != nil {
		return nil, err
	}

	out := make([]*ProfileView, 0, len(found))
	for _, p := range found {
		out = append(out, s.enrich(ctx, p))
	}
	return out, nil
}

func (s *RegistryService) enrich(ctx context.Context, p *models.Profile) *ProfileView {
	v := &ProfileView{Profile: p, Enriched: true}
	p.Biography = s.sanitizer.Sanitize(p.Biography)

	if s.photos != nil && p.PhotoKey != "" {
		url, err := s.photos.URL(ctx, p.PhotoKey)
		if err != nil {
			s.logger.Warn(ctx, "photo url not signed", "profile", p.ID, "error", err)
		} else {
			v.PhotoURL = url
		}
	}
	return v
}

// ListProfiles returns partial views of up to limit profiles, deleted ones
// included. A non-positive or too large limit means MaxListLimit.
func (s *RegistryService) ListProfiles(ctx context.Context, limit int) ([]*ProfileView, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	found, err := s.repomanager.Profiles(s.db).List(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*ProfileView, 0, len(found))
	for _, p := range found {
		out = append(out, &ProfileView{Profile: p})
	}
	return out, nil
}

// RecordShareEvent validates and stores ev. scannerID is the authenticated
// caller's profile, "" for anonymous callers; it replaces whatever scanner
// the client put on the event. Replays of a stored event id are accepted
// without a second row.
func (s *RegistryService) RecordShareEvent(ctx context.Context, scannerID string, ev *models.ShareEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: empty event", common.ErrInvalidFormat)
	}
	if _, err := ulid.ParseStrict(ev.ID); err != nil {
		return fmt.Errorf("%w: event id: %v", common.ErrInvalidFormat, err)
	}
	if !identifier.ValidateShareCode(ev.TargetShareCode) {
		return fmt.Errorf("%w: target share code %q", common.ErrInvalidFormat, ev.TargetShareCode)
	}
	if !shareMethods[ev.Method] {
		return fmt.Errorf("%w: method %q", common.ErrInvalidFormat, ev.Method)
	}
	if uuid.Validate(ev.TargetProfileID) != nil {
		return common.ErrorNotFound
	}

	key := scannerID
	if key == "" {
		key = common.AnonymousCaller
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		s.metrics.ShareEventThrottled()
		return common.ErrRateLimited
	}

	target, err := s.repomanager.Profiles(s.db).GetByID(ctx, ev.TargetProfileID)
	if err != nil {
		return err
	}
	if target.ShareCode != identifier.Normalize(ev.TargetShareCode) {
		return fmt.Errorf("%w: share code does not belong to target", common.ErrInvalidFormat)
	}

	stored := *ev
	stored.TargetShareCode = target.ShareCode
	stored.ScannerProfileID = scannerID
	if uuid.Validate(stored.ReferrerProfileID) != nil {
		stored.ReferrerProfileID = ""
	}
	stored.ReceivedAt = s.clock.Now()
	if stored.OccurredAt.IsZero() || stored.OccurredAt.After(stored.ReceivedAt.Add(maxClockSkew)) {
		stored.OccurredAt = stored.ReceivedAt
	}

	created, err := s.repomanager.ShareEvents(s.db).Create(ctx, &stored)
	if err != nil {
		return err
	}
	if created {
		s.metrics.ShareEventAccepted()
	} else {
		s.logger.Debug(ctx, "share event replayed", "event_id", stored.ID)
	}
	return nil
}
