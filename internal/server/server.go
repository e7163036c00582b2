// Package server exposes the task backend over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/task"
)

// TaskStore is the persistence the API serves.
type TaskStore interface {
	CreateTask(ctx context.Context, categoryID string, payload task.Payload) (int64, error)
	ListTasks(ctx context.Context) ([]task.Task, error)
	GetTask(ctx context.Context, id int64) (task.Task, error)
}

// Categories is the catalog lookup the API validates against.
type Categories interface {
	Category(id string) (catalog.Category, bool)
	Rows() (primary, secondary []string)
}

// Config configures a Server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Version        string
}

type Server struct {
	store    TaskStore
	catalog  Categories
	origins  map[string]struct{}
	version  string
	validate *validator.Validate
	logger   *slog.Logger
	server   *http.Server
}

// New builds a server. Call Start to listen, or Handler to mount it elsewhere.
func New(cfg Config, store TaskStore, cat Categories, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		catalog:  cat,
		origins:  make(map[string]struct{}, len(cfg.AllowedOrigins)),
		version:  cfg.Version,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = struct{}{}
	}
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("task API listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
