package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/services"
	"google.golang.org/grpc"
)

type userSvc interface {
	Register(ctx context.Context, username string, salt, verifier []byte, displayName string) (*models.User, *models.Profile, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type registrySvc interface {
	WhoAmI(ctx context.Context, userID string) (*models.Profile, error)
	Lookup(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error)
	Evaluate(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error)
	FetchProfiles(ctx context.Context, ids []string) ([]*services.ProfileView, error)
	ListProfiles(ctx context.Context, limit int) ([]*services.ProfileView, error)
	RecordShareEvent(ctx context.Context, scannerID string, ev *models.ShareEvent) error
}

type GRPCServer struct {
	pb.UnimplementedRegistryServer
	address   string
	users     userSvc
	registry  registrySvc
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, rs registrySvc, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		registry:  rs,
		jwtSecret: []byte(secretKey),
	}
}

// newServer creates the gRPC server with the interceptor chain and the
// Registry service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.accessTokenInterceptor))
	pb.RegisterRegistryServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
