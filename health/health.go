// Package health exposes the bot's readiness over the standard gRPC health
// protocol so process supervisors can check it.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported next to the overall ("") status.
const Service = "confessbot.Bot"

// Server hosts the gRPC health service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	log        *zap.Logger

	mu      sync.Mutex
	ready   bool
	healthy bool
}

// Check reports whether a dependency the bot cannot work without is usable.
type Check func(ctx context.Context) error

// New listens on addr. The server reports NOT_SERVING until SetServing.
func New(addr string, log *zap.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return NewWithListener(listener, log), nil
}

// NewWithListener serves on an existing listener.
func NewWithListener(listener net.Listener, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	s := &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		healthy:    true,
	}
	s.set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return s
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetServing marks the bot ready. SERVING is only reported while the last
// Watch check passed.
func (s *Server) SetServing() {
	s.update(func() { s.ready = true })
}

// SetNotServing marks the bot not ready.
func (s *Server) SetNotServing() {
	s.update(func() { s.ready = false })
}

// Watch runs check every interval until ctx is done. While it fails the
// server reports NOT_SERVING.
func (s *Server) Watch(ctx context.Context, interval time.Duration, check Check) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runCheck(ctx, interval, check)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Server) runCheck(ctx context.Context, timeout time.Duration, check Check) {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := check(checkCtx)
	if ctx.Err() != nil {
		return
	}
	s.update(func() {
		switch {
		case err != nil && s.healthy:
			s.log.Error("dependency check failed", zap.Error(err))
		case err == nil && !s.healthy:
			s.log.Info("dependency check recovered")
		}
		s.healthy = err == nil
	})
}

func (s *Server) update(change func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change()
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if s.ready && s.healthy {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.set(status)
}

func (s *Server) set(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	s.log.Debug("health status changed", zap.Stringer("status", status))
}

// Serve runs until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("health server listening", zap.String("addr", s.Addr()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health: %w", err)
	}
}
