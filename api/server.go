package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/question"
	"github.com/evalforge/evalforge/internal/runner"
)

type Server struct {
	router    *gin.Engine
	config    *config.Config
	questions *question.Store
	runner    *runner.Runner
	provider  string
	lbStore   *leaderboard.Store
}

func NewServer(cfg *config.Config, questions *question.Store, r *runner.Runner, provider string, lbStore *leaderboard.Store) (*Server, error) {
	engine := gin.New()
	s := &Server{
		router:    engine,
		config:    cfg,
		questions: questions,
		runner:    r,
		provider:  provider,
		lbStore:   lbStore,
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
