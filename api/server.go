package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ttrsuite/lexeval/internal/checkpoint"
	"github.com/ttrsuite/lexeval/internal/config"
	"github.com/ttrsuite/lexeval/internal/consolidate"
)

// Server exposes stored benchmark results over HTTP. It is read-only:
// runs are started from the CLI, never through the API.
type Server struct {
	router *gin.Engine
	store  checkpoint.Store
	config *config.Config
	cons   *consolidate.Consolidator
}

func NewServer(cfg *config.Config, st checkpoint.Store) (*Server, error) {
	if st == nil {
		return nil, errors.New("api: nil store")
	}
	r := gin.New()
	s := &Server{
		router: r,
		store:  st,
		config: cfg,
		cons:   consolidate.New(cfg),
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}
