package health

import (
	"google.golang.org/grpc"

	healthgrpc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name clients pass to Check for the market data feed.
const Service = "mt5bridge.Feed"

// Server reports SERVING while the market data subscription is connected.
type Server struct {
	server *healthgrpc.Server
}

func NewServer() *Server {
	s := &Server{server: healthgrpc.NewServer()}
	s.SetConnected(false)
	return s
}

// SetConnected flips both the feed service and the overall status.
func (s *Server) SetConnected(connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.server.SetServingStatus(Service, status)
	s.server.SetServingStatus("", status)
}

func (s *Server) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, s.server)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.server.Shutdown()
}
