package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.RegistryClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == pb.FullMethod(pb.MethodRefreshToken) {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &pb.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	// retry once with the fresh access token
	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func NewRegistryClientService(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewRegistryClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, key []byte, displayName string) (*models.SelfIdentity, error) {
	req := &pb.RegisterUserRequest{Username: userName, Salt: salt, Verifier: key, DisplayName: displayName}

	resp, err := s.client.RegisterUser(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &models.SelfIdentity{ProfileID: resp.ProfileID, ShareCode: resp.ShareCode}, nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &pb.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, userName string, key []byte) error {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{Username: userName, VerifierCandidate: key})
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// Logout forgets the session tokens.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

// HasSession reports whether the client holds an access token.
func (s *GRPCClient) HasSession() bool {
	access, _ := s.tokens()
	return access != ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*models.SelfIdentity, error) {
	resp, err := s.client.WhoAmI(ctx, &pb.WhoAmIRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &models.SelfIdentity{ProfileID: resp.ProfileID, ShareCode: resp.ShareCode, LegacyID: resp.LegacyID}, nil
}

// LookupProfile is a point query by share code or legacy id.
func (s *GRPCClient) LookupProfile(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error) {
	req := &pb.LookupProfileRequest{}
	switch id.Kind {
	case identifier.KindShareCode:
		req.ShareCode = id.Value
	case identifier.KindLegacy:
		req.LegacyID = id.Value
	default:
		return nil, common.ErrInvalidFormat
	}

	resp, err := s.client.LookupProfile(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	if resp.Profile == nil {
		return nil, common.ErrorNotFound
	}
	return profileFromWire(resp.Profile), nil
}

// EvaluatePermission asks the registry for the caller's level on target.
// An empty callerID evaluates as anonymous.
func (s *GRPCClient) EvaluatePermission(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error) {
	resp, err := s.client.EvaluatePermission(ctx, &pb.EvaluatePermissionRequest{CallerID: callerID, TargetID: targetID})
	if err != nil {
		return "", s.mapError(err)
	}

	level, err := models.ParsePermissionLevel(resp.Level)
	if err != nil {
		return "", fmt.Errorf("malformed permission response: %w", err)
	}
	return level, nil
}

func (s *GRPCClient) RecordShareEvent(ctx context.Context, ev *models.ShareEvent) error {
	resp, err := s.client.RecordShareEvent(ctx, &pb.RecordShareEventRequest{Event: shareEventToWire(ev)})
	if err != nil {
		return s.mapError(err)
	}
	if !resp.Accepted {
		return fmt.Errorf("share event %s was not accepted", ev.ID)
	}
	return nil
}

func (s *GRPCClient) FetchProfiles(ctx context.Context, ids []string) ([]*models.Profile, error) {
	resp, err := s.client.FetchProfiles(ctx, &pb.FetchProfilesRequest{IDs: ids})
	if err != nil {
		return nil, s.mapError(err)
	}
	return profilesFromWire(resp.Profiles), nil
}

func (s *GRPCClient) ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error) {
	resp, err := s.client.ListProfiles(ctx, &pb.ListProfilesRequest{Limit: limit})
	if err != nil {
		return nil, s.mapError(err)
	}
	return profilesFromWire(resp.Profiles), nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable:
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return common.ErrTimeout
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.ResourceExhausted:
		return common.ErrRateLimited
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidFormat, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
