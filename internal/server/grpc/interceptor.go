package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kinlink/internal/common"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
	"github.com/dmitrijs2005/kinlink/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// tokenRequired lists the methods that refuse anonymous callers. Every
// other method accepts a token when one is sent.
var tokenRequired = map[string]bool{
	pb.FullMethod(pb.MethodWhoAmI): true,
}

// SubjectFromContext returns the caller the interceptor authenticated.
func SubjectFromContext(ctx context.Context) (auth.Subject, bool) {
	sub, ok := ctx.Value(subjectKey).(auth.Subject)
	return sub, ok
}

func accessToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AccessTokenHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	token := accessToken(ctx)
	if token == "" {
		if tokenRequired[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		return handler(ctx, req)
	}

	sub, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		// the client refreshes on exactly this message
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, subjectKey, sub), req)
}

func (s *GRPCServer) recoverInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "handler panicked", "method", info.FullMethod, "panic", p)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
