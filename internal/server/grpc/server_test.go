package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/common"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
	"github.com/dmitrijs2005/kinlink/internal/server/auth"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", nopLogger{}, &fakeUser{}, &fakeRegistry{}, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &fakeUser{}, &fakeRegistry{}, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

func dial(t *testing.T, s *GRPCServer) pb.RegistryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := s.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return pb.NewRegistryClient(conn)
}

func TestServer_EndToEnd(t *testing.T) {
	r := &fakeRegistry{
		evalResp: models.PermissionReview,
		whoResp:  &models.Profile{ID: "p-1", ShareCode: "abc12"},
	}
	s := NewGRPCServer("", nopLogger{}, &fakeUser{}, r, "secret")
	c := dial(t, s)

	token, err := auth.GenerateToken(auth.Subject{UserID: "u-1", ProfileID: "p-1"}, []byte("secret"), time.Hour)
	require.NoError(t, err)
	authed := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)

	_, err = c.WhoAmI(context.Background(), &pb.WhoAmIRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	who, err := c.WhoAmI(authed, &pb.WhoAmIRequest{})
	require.NoError(t, err)
	assert.Equal(t, "abc12", who.ShareCode)

	lvl, err := c.EvaluatePermission(authed, &pb.EvaluatePermissionRequest{TargetID: "p-2"})
	require.NoError(t, err)
	assert.Equal(t, "review", lvl.Level)
	assert.Equal(t, "p-1", r.evalCaller)

	expired, err := auth.GenerateToken(auth.Subject{UserID: "u-1"}, []byte("secret"), -time.Minute)
	require.NoError(t, err)
	stale := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, expired)
	_, err = c.EvaluatePermission(stale, &pb.EvaluatePermissionRequest{TargetID: "p-2"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrTokenExpired.Error(), status.Convert(err).Message())
}
