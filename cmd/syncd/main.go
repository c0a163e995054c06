// syncd fans domain events out to a user's connected devices over
// websockets.
package main

import (
	"net/http"

	"github.com/driftlabs/driftbox/internal/app"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/sync"
)

func main() {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg := config.Load()
	log := logging.NewDefault("syncd")

	broker, err := messaging.Dial(ctx, cfg.AMQPURL, cfg.BrokerConnectAttempts, cfg.BrokerConnectDelay, log)
	if err != nil {
		app.Fatal(log, err)
	}
	defer broker.Close()

	registry := sync.NewRegistry()
	if err := sync.NewConsumers(registry, log).Start(broker); err != nil {
		app.Fatal(log, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"service":     "syncd",
			"connections": registry.Total(),
		})
	})
	mux.Handle("GET /ws", sync.NewGateway(registry, []byte(cfg.SecretKey), log))

	if err := app.Serve(ctx, log, cfg.HTTPAddr, mux); err != nil {
		app.Fatal(log, err)
	}
}
