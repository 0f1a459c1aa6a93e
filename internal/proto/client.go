package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "kinlink.registry.v1.Registry"

const (
	MethodPing               = "Ping"
	MethodGetSalt            = "GetSalt"
	MethodRegisterUser       = "RegisterUser"
	MethodLogin              = "Login"
	MethodRefreshToken       = "RefreshToken"
	MethodWhoAmI             = "WhoAmI"
	MethodLookupProfile      = "LookupProfile"
	MethodEvaluatePermission = "EvaluatePermission"
	MethodRecordShareEvent   = "RecordShareEvent"
	MethodFetchProfiles      = "FetchProfiles"
	MethodListProfiles       = "ListProfiles"
)

// FullMethod returns the gRPC method path, e.g. "/kinlink.registry.v1.Registry/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegistryClient is the client API of the Registry service.
type RegistryClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error)
	RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	WhoAmI(ctx context.Context, in *WhoAmIRequest, opts ...grpc.CallOption) (*WhoAmIResponse, error)
	LookupProfile(ctx context.Context, in *LookupProfileRequest, opts ...grpc.CallOption) (*LookupProfileResponse, error)
	EvaluatePermission(ctx context.Context, in *EvaluatePermissionRequest, opts ...grpc.CallOption) (*EvaluatePermissionResponse, error)
	RecordShareEvent(ctx context.Context, in *RecordShareEventRequest, opts ...grpc.CallOption) (*RecordShareEventResponse, error)
	FetchProfiles(ctx context.Context, in *FetchProfilesRequest, opts ...grpc.CallOption) (*FetchProfilesResponse, error)
	ListProfiles(ctx context.Context, in *ListProfilesRequest, opts ...grpc.CallOption) (*ListProfilesResponse, error)
}

type registryClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient {
	return &registryClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	if in == nil {
		in = new(Req)
	}
	msg, err := Encode(in)
	if err != nil {
		return nil, err
	}
	reply := &structpb.Struct{}
	if err := cc.Invoke(ctx, FullMethod(method), msg, reply, opts...); err != nil {
		return nil, err
	}
	out := new(Resp)
	if err := Decode(reply, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingRequest, PingResponse](ctx, c.cc, MethodPing, in, opts...)
}

func (c *registryClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltRequest, GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts...)
}

func (c *registryClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error) {
	return invoke[RegisterUserRequest, RegisterUserResponse](ctx, c.cc, MethodRegisterUser, in, opts...)
}

func (c *registryClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, MethodLogin, in, opts...)
}

func (c *registryClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenRequest, RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts...)
}

func (c *registryClient) WhoAmI(ctx context.Context, in *WhoAmIRequest, opts ...grpc.CallOption) (*WhoAmIResponse, error) {
	return invoke[WhoAmIRequest, WhoAmIResponse](ctx, c.cc, MethodWhoAmI, in, opts...)
}

func (c *registryClient) LookupProfile(ctx context.Context, in *LookupProfileRequest, opts ...grpc.CallOption) (*LookupProfileResponse, error) {
	return invoke[LookupProfileRequest, LookupProfileResponse](ctx, c.cc, MethodLookupProfile, in, opts...)
}

func (c *registryClient) EvaluatePermission(ctx context.Context, in *EvaluatePermissionRequest, opts ...grpc.CallOption) (*EvaluatePermissionResponse, error) {
	return invoke[EvaluatePermissionRequest, EvaluatePermissionResponse](ctx, c.cc, MethodEvaluatePermission, in, opts...)
}

func (c *registryClient) RecordShareEvent(ctx context.Context, in *RecordShareEventRequest, opts ...grpc.CallOption) (*RecordShareEventResponse, error) {
	return invoke[RecordShareEventRequest, RecordShareEventResponse](ctx, c.cc, MethodRecordShareEvent, in, opts...)
}

func (c *registryClient) FetchProfiles(ctx context.Context, in *FetchProfilesRequest, opts ...grpc.CallOption) (*FetchProfilesResponse, error) {
	return invoke[FetchProfilesRequest, FetchProfilesResponse](ctx, c.cc, MethodFetchProfiles, in, opts...)
}

func (c *registryClient) ListProfiles(ctx context.Context, in *ListProfilesRequest, opts ...grpc.CallOption) (*ListProfilesResponse, error) {
	return invoke[ListProfilesRequest, ListProfilesResponse](ctx, c.cc, MethodListProfiles, in, opts...)
}
