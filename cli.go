package main

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// defaultAPIBase matches the server's default network.client_port_http
// (internal/config setDefaults), so the CLI reaches a default-config server
// without EVADEARENA_API set.
const defaultAPIBase = "http://127.0.0.1:8080"

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string) bool {
	if len(args) == 0 {
		return false
	}

	base := defaultAPIBase
	if v, ok := os.LookupEnv("EVADEARENA_API"); ok {
		base = v
	}
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // operator CLI talks to its own self-signed server
		},
	}

	switch args[0] {
	case "version":
		fmt.Printf("evadearena %s\n", Version)
		return true
	case "status":
		return cliStatus(client, base)
	case "areas":
		return cliAreas(client, base)
	case "leaderboard":
		return cliLeaderboard(client, base)
	case "player":
		return cliPlayer(client, base, args[1:])
	default:
		return false
	}
}

// apiGet issues a GET to base+path and decodes the JSON body into out.
func apiGet(client *http.Client, base, path string, out any) error {
	resp, err := client.Get(base + path)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cliStatus(client *http.Client, base string) bool {
	var ver VersionResponse
	if err := apiGet(client, base, "/api/version", &ver); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var areas []AreaResponse
	if err := apiGet(client, base, "/api/areas", &areas); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	total := 0
	for _, a := range areas {
		total += a.Players
	}
	fmt.Printf("Server: %s\n", base)
	fmt.Printf("Version: %s\n", ver.Version)
	fmt.Printf("Areas: %d\n", len(areas))
	fmt.Printf("Players: %d\n", total)
	return true
}

func cliAreas(client *http.Client, base string) bool {
	var areas []AreaResponse
	if err := apiGet(client, base, "/api/areas", &areas); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(areas) == 0 {
		fmt.Println("No areas running.")
		return true
	}
	for _, a := range areas {
		fmt.Printf("  %-20s %-20s players=%d\n", a.Key, a.Name, a.Players)
	}
	return true
}

func cliLeaderboard(client *http.Client, base string) bool {
	var entries []LeaderboardEntryResponse
	if err := apiGet(client, base, "/api/leaderboard", &entries); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No players connected.")
		return true
	}
	for _, e := range entries {
		status := ""
		if e.Downed {
			status = " (downed)"
		}
		if e.Victory {
			status += " (victor)"
		}
		fmt.Printf("  [%d] %-16s %s/%s%s\n", e.PlayerID, e.PlayerName, e.MapID, e.AreaName, status)
	}
	return true
}

func cliPlayer(client *http.Client, base string, args []string) bool {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: evadearena player <name>\n")
		os.Exit(1)
	}
	var p PlayerResponse
	if err := apiGet(client, base, "/api/players/"+args[0], &p); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ID: %d\n", p.PlayerID)
	fmt.Printf("Name: %s\n", p.Name)
	fmt.Printf("Area: %s\n", p.AreaKey)
	return true
}
