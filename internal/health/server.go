// Package health exposes the standard gRPC health checking service
// (grpc.health.v1) so that orchestrators can probe the process.
package health

import (
	"net"

	"github.com/sbilibin2017/gw-users/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported next to the overall "" status.
const ServiceName = "users.v1.UserService"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer creates a health server reporting SERVING.
func NewServer() *Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h)

	return &Server{grpcServer: gs, health: h}
}

// Serve accepts connections on lis until Shutdown is called.
func (s *Server) Serve(lis net.Listener) error {
	logger.Log.Infow("gRPC health server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// SetServing switches the reported status between SERVING and NOT_SERVING.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Shutdown marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
