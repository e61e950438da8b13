// Package healthsrv exposes the capture session state over the standard
// gRPC health checking protocol, so a supervisor on the capture host can
// tell a live capture from a stalled or aborted one.
package healthsrv

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/motion.capture/internal/capture"
	"github.com/banshee-data/motion.capture/internal/monitoring"
)

// Service is the health service name reported for the capture session.
const Service = "motion.capture.Session"

var logf = monitoring.Prefixed("health")

// Config configures the health server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50052")
	ListenAddr string
}

// DefaultConfig returns the default health server configuration.
func DefaultConfig() Config {
	return Config{ListenAddr: "localhost:50052"}
}

// Server serves grpc.health.v1.Health.
type Server struct {
	config   Config
	health   *health.Server
	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New returns a stopped Server reporting NOT_SERVING.
func New(cfg Config) *Server {
	s := &Server{config: cfg, health: health.NewServer()}
	s.SetState(capture.StateIdle)
	return s
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("health server already running")
	}

	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis

	s.server = grpc.NewServer()
	healthpb.RegisterHealthServer(s.server, s.health)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logf("gRPC health listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SetState maps a session state to a serving status: SERVING only while
// capturing.
func (s *Server) SetState(state capture.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == capture.StateCapturing {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(Service, status)
	s.health.SetServingStatus("", status)
}

// Observe updates the status from a session event.
func (s *Server) Observe(ev capture.Event) {
	s.SetState(ev.State)
}

// Stop marks every service NOT_SERVING and shuts the server down.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.health.Shutdown()
	s.server.GracefulStop()
	s.wg.Wait()
	logf("gRPC health stopped")
}
