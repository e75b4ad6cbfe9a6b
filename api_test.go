package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAPI(t *testing.T) *APIServer {
	t.Helper()
	game := newTestGame(t)
	return NewAPIServer(game, "")
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleHealth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field: got %q, want %q", resp.Status, "ok")
	}
}

func TestHealthEndpointUnavailableAfterClose(t *testing.T) {
	api := newTestAPI(t)
	api.game.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleHealth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestVersionEndpoint(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleVersion(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp VersionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Version != Version {
		t.Errorf("version: got %q, want %q", resp.Version, Version)
	}
}

func TestAreasEndpointEmpty(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleAreas(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp []AreaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("expected no areas before any hero spawns, got %v", resp)
	}
}

func TestAreasEndpointReportsPlayerCount(t *testing.T) {
	api := newTestAPI(t)
	if err := api.game.SpawnHero(1, "alice"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/areas", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleAreas(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp []AreaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 area, got %d", len(resp))
	}
	if resp[0].Players != 1 {
		t.Errorf("players: got %d, want 1", resp[0].Players)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	api := newTestAPI(t)
	_, lbCh, unsub := api.game.SubscribeLeaderboard(1)
	defer unsub()
	if err := api.game.SpawnHero(1, "alice"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}
	// The leaderboard forwarder applies alice's Add delta to the state
	// before publishing it, so once it arrives the endpoint must list her.
	select {
	case <-lbCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for alice's leaderboard Add delta")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	if err := api.handleLeaderboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp []LeaderboardEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 || resp[0].PlayerName != "alice" {
		t.Errorf("expected a single entry for alice, got %v", resp)
	}
}

func TestGetPlayerFound(t *testing.T) {
	api := newTestAPI(t)
	if err := api.game.SpawnHero(1, "alice"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/players/alice", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("alice")

	if err := api.handleGetPlayer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp PlayerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Name != "alice" || resp.PlayerID != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetPlayerNotFound(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/players/ghost", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("ghost")

	err := api.handleGetPlayer(c)
	if err == nil {
		t.Fatal("expected error for unknown player, got nil")
	}
}

func TestRouteRegistration(t *testing.T) {
	api := newTestAPI(t)

	routes := api.echo.Routes()
	paths := make(map[string]bool)
	for _, r := range routes {
		paths[r.Path] = true
	}
	for _, want := range []string{"/healthz", "/api/version", "/api/areas", "/api/leaderboard"} {
		if !paths[want] {
			t.Errorf("route %q not registered; got %v", want, routes)
		}
	}
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	api := newTestAPI(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		api.Run(ctx, "127.0.0.1:0")
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // let Start get the listener going
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}
