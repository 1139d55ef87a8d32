package api

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/config"
	"github.com/caisdata/cais/internal/migrations"
	"github.com/caisdata/cais/internal/pubsub"
	"github.com/caisdata/cais/internal/services"
)

const auditSweepInterval = 6 * time.Hour

// Server is the REST surface of the analytics platform.
type Server struct {
	srv       *fasthttp.Server
	addr      string
	services  *services.Services
	pubsub    *pubsub.PubSub
	sweepStop chan struct{}
}

// New runs migrations, wires the services and builds the route table.
func New() *Server {
	conf := config.ReadConfig()

	m, err := migrations.NewMigrator()
	if err != nil {
		panic("unable to create migrator")
	}

	err = m.Up(0)
	if err != nil {
		panic("unable to run migrations")
	}

	s := &Server{
		srv:       &fasthttp.Server{},
		addr:      conf.HTTP_ADDR,
		services:  services.NewServices(conf),
		pubsub:    pubsub.NewPubSub(conf),
		sweepStop: make(chan struct{}),
	}

	// Cross-instance permission cache invalidation
	s.pubsub.Subscribe(func(event pubsub.GrantChangeEvent) {
		if event.TenantID == nil {
			s.services.Permission.InvalidateAll()
			return
		}
		s.services.Permission.Invalidate(*event.TenantID)
	})
	if err := s.pubsub.Start(); err != nil {
		slog.Warn("Permission change listener unavailable", slog.Any("error", err))
	}

	s.srv.Handler = s.initNewRoutes()

	return s
}

// Start the rest server
func (s *Server) Start() {
	slog.Info("Starting REST server...")
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	go s.sweepAuditLoop()

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	// Create a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// Shutdown shuts down the rest server
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.Shutdown(); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}

	close(s.sweepStop)
	s.pubsub.Stop()
	s.services.Audit.Close()

	slog.Info("REST server shutdown!")
}

// sweepAuditLoop enforces the audit retention horizon between runs of the
// audit-sweep command.
func (s *Server) sweepAuditLoop() {
	ticker := time.NewTicker(auditSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.services.Audit.Sweep(ctx); err != nil {
				slog.Error("Audit retention sweep failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}
