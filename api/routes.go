package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api")
	apiKey := strings.TrimSpace(os.Getenv("EVALFORGE_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("EVALFORGE_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set EVALFORGE_API_KEY or set EVALFORGE_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)
	api.GET("/benchmarks", s.handleListBenchmarks)

	api.POST("/runs", s.handleStartRun)

	api.GET("/leaderboard", s.handleGetLeaderboard)
	api.GET("/leaderboard/history", s.handleGetModelHistory)

	api.POST("/compare", s.handleCompare)

	return nil
}
