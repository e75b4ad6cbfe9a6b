package main

import (
	"context"
	"log"
	"time"

	"evadearena/internal/orchestrator"
)

// RunMetrics logs orchestrator stats every interval until ctx is canceled.
func RunMetrics(ctx context.Context, game *orchestrator.Orchestrator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			areas := game.AreaStats()
			players := 0
			for _, a := range areas {
				players += a.Players
			}
			if players > 0 || len(areas) > 0 {
				log.Printf("[metrics] areas=%d players=%d", len(areas), players)
			}
		}
	}
}
