package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RegistryServer is the server API of the Registry service.
type RegistryServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error)
	LookupProfile(context.Context, *LookupProfileRequest) (*LookupProfileResponse, error)
	EvaluatePermission(context.Context, *EvaluatePermissionRequest) (*EvaluatePermissionResponse, error)
	RecordShareEvent(context.Context, *RecordShareEventRequest) (*RecordShareEventResponse, error)
	FetchProfiles(context.Context, *FetchProfilesRequest) (*FetchProfilesResponse, error)
	ListProfiles(context.Context, *ListProfilesRequest) (*ListProfilesResponse, error)
}

// UnimplementedRegistryServer answers every call with codes.Unimplemented.
// Embed it to stay forward compatible.
type UnimplementedRegistryServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedRegistryServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented(MethodPing)
}
func (UnimplementedRegistryServer) GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error) {
	return nil, unimplemented(MethodGetSalt)
}
func (UnimplementedRegistryServer) RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error) {
	return nil, unimplemented(MethodRegisterUser)
}
func (UnimplementedRegistryServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented(MethodLogin)
}
func (UnimplementedRegistryServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, unimplemented(MethodRefreshToken)
}
func (UnimplementedRegistryServer) WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error) {
	return nil, unimplemented(MethodWhoAmI)
}
func (UnimplementedRegistryServer) LookupProfile(context.Context, *LookupProfileRequest) (*LookupProfileResponse, error) {
	return nil, unimplemented(MethodLookupProfile)
}
func (UnimplementedRegistryServer) EvaluatePermission(context.Context, *EvaluatePermissionRequest) (*EvaluatePermissionResponse, error) {
	return nil, unimplemented(MethodEvaluatePermission)
}
func (UnimplementedRegistryServer) RecordShareEvent(context.Context, *RecordShareEventRequest) (*RecordShareEventResponse, error) {
	return nil, unimplemented(MethodRecordShareEvent)
}
func (UnimplementedRegistryServer) FetchProfiles(context.Context, *FetchProfilesRequest) (*FetchProfilesResponse, error) {
	return nil, unimplemented(MethodFetchProfiles)
}
func (UnimplementedRegistryServer) ListProfiles(context.Context, *ListProfilesRequest) (*ListProfilesResponse, error) {
	return nil, unimplemented(MethodListProfiles)
}

// RegisterRegistryServer attaches srv to s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed RegistryServer method to a grpc.MethodHandler.
// Interceptors see the typed request, not the Struct.
func unary[Req, Resp any](method string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		req := new(Req)
		if err := Decode(in, req); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}

		run := func(ctx context.Context, r any) (any, error) {
			resp, err := call(srv.(RegistryServer), ctx, r.(*Req))
			if err != nil {
				return nil, err
			}
			if resp == nil {
				resp = new(Resp)
			}
			return Encode(resp)
		}

		if interceptor == nil {
			return run(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, req, info, run)
	}
}

// ServiceDesc describes the Registry service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPing, Handler: unary(MethodPing, RegistryServer.Ping)},
		{MethodName: MethodGetSalt, Handler: unary(MethodGetSalt, RegistryServer.GetSalt)},
		{MethodName: MethodRegisterUser, Handler: unary(MethodRegisterUser, RegistryServer.RegisterUser)},
		{MethodName: MethodLogin, Handler: unary(MethodLogin, RegistryServer.Login)},
		{MethodName: MethodRefreshToken, Handler: unary(MethodRefreshToken, RegistryServer.RefreshToken)},
		{MethodName: MethodWhoAmI, Handler: unary(MethodWhoAmI, RegistryServer.WhoAmI)},
		{MethodName: MethodLookupProfile, Handler: unary(MethodLookupProfile, RegistryServer.LookupProfile)},
		{MethodName: MethodEvaluatePermission, Handler: unary(MethodEvaluatePermission, RegistryServer.EvaluatePermission)},
		{MethodName: MethodRecordShareEvent, Handler: unary(MethodRecordShareEvent, RegistryServer.RecordShareEvent)},
		{MethodName: MethodFetchProfiles, Handler: unary(MethodFetchProfiles, RegistryServer.FetchProfiles)},
		{MethodName: MethodListProfiles, Handler: unary(MethodListProfiles, RegistryServer.ListProfiles)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kinlink/registry/v1/registry.proto",
}
