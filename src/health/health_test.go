package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_FollowsConnection(t *testing.T) {
	s := NewServer()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, Service))

	s.SetConnected(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s, Service))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s, ""))

	s.SetConnected(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, Service))
}

func TestServer_ShutdownSticks(t *testing.T) {
	s := NewServer()
	s.SetConnected(true)
	s.Shutdown()
	s.SetConnected(true)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, Service))
}
