package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"evadearena/internal/orchestrator"
)

// Version is the current server version. Set at build time via -ldflags.
var Version = "0.1.0-dev"

// APIServer provides the operator-facing HTTP REST API: health checking,
// leaderboard/area introspection, and the static client bundle. It runs on
// a separate TCP port from the WebTransport game listener.
type APIServer struct {
	game       *orchestrator.Orchestrator
	echo       *echo.Echo
	clientPath string // directory the static client bundle is served from
}

// NewAPIServer constructs an APIServer and registers all routes. clientPath
// is the directory the static client bundle is served from; empty disables
// static serving.
func NewAPIServer(game *orchestrator.Orchestrator, clientPath string) *APIServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[api] %s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = jsonErrorHandler

	s := &APIServer{game: game, echo: e, clientPath: clientPath}
	s.registerRoutes()
	return s
}

func (s *APIServer) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/api/version", s.handleVersion)
	s.echo.GET("/api/areas", s.handleAreas)
	s.echo.GET("/api/leaderboard", s.handleLeaderboard)
	s.echo.GET("/api/players/:name", s.handleGetPlayer)
	if s.clientPath != "" {
		s.echo.Static("/", s.clientPath)
	}
}

// Run starts the Echo HTTP server on addr and blocks until ctx is canceled.
func (s *APIServer) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// VersionResponse is the payload for GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

func (s *APIServer) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionResponse{Version: Version})
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns 200 only once the orchestrator's map table and spawn
// area are ready, and 503 once it has shut down.
func (s *APIServer) handleHealth(c echo.Context) error {
	if !s.game.Ready() {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// AreaResponse is an element in the GET /api/areas array.
type AreaResponse struct {
	Key     string `json:"key"`
	MapID   string `json:"map_id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

func (s *APIServer) handleAreas(c echo.Context) error {
	stats := s.game.AreaStats()
	resp := make([]AreaResponse, 0, len(stats))
	for _, a := range stats {
		resp = append(resp, AreaResponse{Key: a.Key, MapID: a.MapID, Name: a.Name, Players: a.Players})
	}
	return c.JSON(http.StatusOK, resp)
}

// LeaderboardEntryResponse is an element in the GET /api/leaderboard array.
type LeaderboardEntryResponse struct {
	PlayerID   uint64 `json:"player_id"`
	PlayerName string `json:"player_name"`
	Downed     bool   `json:"downed"`
	MapID      string `json:"map_id"`
	AreaName   string `json:"area_name"`
	Victory    bool   `json:"victory"`
}

func (s *APIServer) handleLeaderboard(c echo.Context) error {
	entries := s.game.Leaderboard()
	resp := make([]LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LeaderboardEntryResponse{
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Downed:     e.Downed,
			MapID:      e.AreaInfo.MapID,
			AreaName:   e.AreaInfo.AreaName,
			Victory:    e.AreaInfo.Victory,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// PlayerResponse is the payload for GET /api/players/:name.
type PlayerResponse struct {
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	AreaKey  string `json:"area_key"`
}

func (s *APIServer) handleGetPlayer(c echo.Context) error {
	name := c.Param("name")
	p, ok := s.game.GetPlayerByName(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "player not found")
	}
	return c.JSON(http.StatusOK, PlayerResponse{PlayerID: p.ID, Name: p.Name, AreaKey: p.AreaKey.String()})
}

// jsonErrorHandler ensures all error responses have a consistent JSON body:
//
//	{"error": "message"}
//
// This replaces Echo's default handler which varies between text and JSON.
func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			c.NoContent(code) //nolint:errcheck
		} else {
			c.JSON(code, map[string]string{"error": msg}) //nolint:errcheck
		}
	}
}
