package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"evadearena/internal/config"
	"evadearena/internal/mapdata"
	"evadearena/internal/orchestrator"
)

func main() {
	// Check for CLI subcommands before loading the server configuration.
	if len(os.Args) > 1 {
		if RunCLI(os.Args[1:]) {
			return
		}
	}

	configPath := ""
	if v, ok := os.LookupEnv("EVADEARENA_CONFIG"); ok {
		configPath = v
	}
	for i, arg := range os.Args {
		if arg == "-config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}

	maps, err := mapdata.LoadDir(cfg.Maps.Path, cfg.Maps.Maps)
	if err != nil {
		log.Fatalf("[maps] %v", err)
	}
	if len(maps.Maps()) == 0 {
		log.Fatalf("[maps] no maps loaded from %q", cfg.Maps.Path)
	}
	if cfg.Game.SpawnMap == "" {
		log.Fatalf("[config] game.spawn_map must be set")
	}
	if _, ok := maps.Map(cfg.Game.SpawnMap); !ok {
		log.Fatalf("[maps] spawn map %q not found in %q", cfg.Game.SpawnMap, cfg.Maps.Path)
	}

	tlsHostname := cfg.Network.IP
	if tlsHostname == "0.0.0.0" || tlsHostname == "" {
		tlsHostname = "localhost"
	}
	tlsConfig, fingerprint, err := loadOrGenerateTLSConfig(cfg.Network.SSLCertPath, cfg.Network.SSLKeyPath, tlsHostname)
	if err != nil {
		log.Fatalf("[tls] %v", err)
	}
	if fingerprint != "" {
		log.Printf("[tls] self-signed certificate fingerprint: %s", fingerprint)
	}

	game := orchestrator.New(maps, cfg.Game.SpawnMap, cfg.FrameDuration())
	defer game.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[main] shutting down...")
		cancel()
	}()

	go RunMetrics(ctx, game, 5*time.Second)

	if testUser := os.Getenv("EVADEARENA_TEST_BOT"); testUser != "" {
		go RunTestBot(ctx, game, testUser)
	}

	wtAddr := net.JoinHostPort(cfg.Network.IP, strconv.Itoa(cfg.Network.WebTransportPort))
	srv := NewServer(wtAddr, tlsConfig, game)

	apiAddr := net.JoinHostPort(cfg.Network.IP, strconv.Itoa(cfg.Network.ClientPortHTTP))
	api := NewAPIServer(game, cfg.Network.ClientPath)
	go func() {
		if err := api.Run(ctx, apiAddr); err != nil {
			log.Printf("[api] %v", err)
		}
	}()
	log.Printf("[api] listening on %s", apiAddr)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("[transport] %v", err)
	}
}
