package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsRequireSpawnMap(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when game.spawn_map is unset")
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	content := `
[network]
ip = "127.0.0.1"
client_port_https = 9443

[game]
spawn_map = "overworld"
simulation_framerate = 30

[maps]
path = "testmaps"
maps = ["overworld", "dungeon"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.IP != "127.0.0.1" || cfg.Network.ClientPortHTTPS != 9443 {
		t.Errorf("unexpected network config: %+v", cfg.Network)
	}
	if cfg.Game.SpawnMap != "overworld" || cfg.Game.SimulationFramerate != 30 {
		t.Errorf("unexpected game config: %+v", cfg.Game)
	}
	if cfg.Maps.Path != "testmaps" || len(cfg.Maps.Maps) != 2 {
		t.Errorf("unexpected maps config: %+v", cfg.Maps)
	}
	if cfg.FrameDuration().Seconds() <= 0 {
		t.Errorf("expected positive frame duration, got %v", cfg.FrameDuration())
	}
	// Defaults still fill in untouched keys.
	if cfg.Network.ClientPath != "client" {
		t.Errorf("expected default client path, got %q", cfg.Network.ClientPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	if err := os.WriteFile(path, []byte("[game]\nspawn_map = \"file-map\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("EVADEARENA_GAME_SPAWN_MAP", "env-map")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.SpawnMap != "env-map" {
		t.Errorf("expected env var to override file, got %q", cfg.Game.SpawnMap)
	}
}
