package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC statuses. Unknown errors are logged
// and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrInvalidFormat):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, services.ErrUserExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {

	return &pb.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) RegisterUser(ctx context.Context, req *pb.RegisterUserRequest) (*pb.RegisterUserResponse, error) {

	s.logger.Info(ctx, "Registration request")

	_, profile, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier, req.DisplayName)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "profile", profile.ID)
	return &pb.RegisterUserResponse{ProfileID: profile.ID, ShareCode: profile.ShareCode}, nil

}

func (s *GRPCServer) GetSalt(ctx context.Context, req *pb.GetSaltRequest) (*pb.GetSaltResponse, error) {

	result, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.GetSaltResponse{Salt: result}, nil

}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {

	tokens, err := s.users.Login(ctx, req.Username, req.VerifierCandidate)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshTokenRequest) (*pb.RefreshTokenResponse, error) {

	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) WhoAmI(ctx context.Context, req *pb.WhoAmIRequest) (*pb.WhoAmIResponse, error) {

	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	p, err := s.registry.WhoAmI(ctx, sub.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.WhoAmIResponse{ProfileID: p.ID, ShareCode: p.ShareCode, LegacyID: p.LegacyID}, nil

}

// lookupKey turns the request into an identifier. The field the client used
// decides the kind, so "h1234" sent as a legacy id is looked up as one.
func lookupKey(req *pb.LookupProfileRequest) (identifier.LinkIdentifier, bool) {
	switch {
	case req.ShareCode != "" && req.LegacyID != "":
		return identifier.LinkIdentifier{}, false
	case req.ShareCode != "":
		if !identifier.ValidateShareCode(req.ShareCode) {
			return identifier.LinkIdentifier{}, false
		}
		return identifier.LinkIdentifier{Kind: identifier.KindShareCode, Value: strings.ToLower(strings.TrimSpace(req.ShareCode))}, true
	case req.LegacyID != "":
		if !identifier.ValidateLegacyID(req.LegacyID) {
			return identifier.LinkIdentifier{}, false
		}
		return identifier.LinkIdentifier{Kind: identifier.KindLegacy, Value: strings.ToUpper(strings.TrimSpace(req.LegacyID))}, true
	}
	return identifier.LinkIdentifier{}, false
}

func (s *GRPCServer) LookupProfile(ctx context.Context, req *pb.LookupProfileRequest) (*pb.LookupProfileResponse, error) {

	id, ok := lookupKey(req)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "exactly one valid share code or legacy id is required")
	}

	p, err := s.registry.Lookup(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.LookupProfileResponse{Profile: toWireProfile(&services.ProfileView{Profile: p})}, nil

}

// EvaluatePermission answers for the authenticated caller. The CallerID in
// the request is not trusted; without a token the caller is anonymous.
func (s *GRPCServer) EvaluatePermission(ctx context.Context, req *pb.EvaluatePermissionRequest) (*pb.EvaluatePermissionResponse, error) {

	var caller string
	if sub, ok := SubjectFromContext(ctx); ok {
		caller = sub.ProfileID
	}
	if req.CallerID != "" && req.CallerID != caller {
		s.logger.Debug(ctx, "ignoring caller id from request", "claimed", req.CallerID, "caller", caller)
	}

	level, err := s.registry.Evaluate(ctx, caller, req.TargetID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.EvaluatePermissionResponse{Level: string(level)}, nil

}

func (s *GRPCServer) RecordShareEvent(ctx context.Context, req *pb.RecordShareEventRequest) (*pb.RecordShareEventResponse, error) {

	if req.Event == nil {
		return nil, status.Error(codes.InvalidArgument, "event is required")
	}

	var scanner string
	if sub, ok := SubjectFromContext(ctx); ok {
		scanner = sub.ProfileID
	}

	ev := &models.ShareEvent{
		ID:                req.Event.ID,
		TargetProfileID:   req.Event.TargetProfileID,
		TargetShareCode:   req.Event.TargetShareCode,
		ReferrerProfileID: req.Event.ReferrerProfileID,
		Method:            req.Event.Method,
		OccurredAt:        req.Event.OccurredAt,
	}
	if err := s.registry.RecordShareEvent(ctx, scanner, ev); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.RecordShareEventResponse{Accepted: true}, nil

}

func (s *GRPCServer) FetchProfiles(ctx context.Context, req *pb.FetchProfilesRequest) (*pb.FetchProfilesResponse, error) {

	views, err := s.registry.FetchProfiles(ctx, req.IDs)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.FetchProfilesResponse{Profiles: toWireProfiles(views)}, nil

}

func (s *GRPCServer) ListProfiles(ctx context.Context, req *pb.ListProfilesRequest) (*pb.ListProfilesResponse, error) {

	views, err := s.registry.ListProfiles(ctx, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.ListProfilesResponse{Profiles: toWireProfiles(views)}, nil

}

func toWireProfile(v *services.ProfileView) *pb.Profile {
	p := v.Profile
	out := &pb.Profile{
		ID:          p.ID,
		ShareCode:   p.ShareCode,
		LegacyID:    p.LegacyID,
		DisplayName: p.DisplayName,
		DeletedAt:   p.DeletedAt,
	}
	if v.Enriched {
		out.Enrichment = &pb.Enrichment{
			PhotoURL:  v.PhotoURL,
			Biography: p.Biography,
			Version:   p.Version,
		}
	}
	return out
}

func toWireProfiles(views []*services.ProfileView) []*pb.Profile {
	out := make([]*pb.Profile, 0, len(views))
	for _, v := range views {
		out = append(out, toWireProfile(v))
	}
	return out
}
