// sharectld serves share links: creation, public access, listing and
// revocation.
package main

import (
	"net/http"

	"github.com/driftlabs/driftbox/internal/app"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/repositories/shares"
	"github.com/driftlabs/driftbox/internal/repositories/users"
	"github.com/driftlabs/driftbox/internal/share"
)

func main() {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg := config.Load()
	log := logging.NewDefault("sharectld")

	db, err := app.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		app.Fatal(log, err)
	}
	defer db.Close()

	broker, err := messaging.Dial(ctx, cfg.AMQPURL, cfg.BrokerConnectAttempts, cfg.BrokerConnectDelay, log)
	if err != nil {
		app.Fatal(log, err)
	}
	defer broker.Close()

	svc := share.NewService(
		shares.NewPostgres(db),
		files.NewPostgres(db),
		users.NewPostgres(db),
		broker,
		log,
	)

	secret := []byte(cfg.SecretKey)
	authenticate := func(next http.Handler) http.Handler {
		return httpx.Authenticate(secret, log, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("sharectld"))
	share.NewHandler(svc, log).Register(mux, authenticate)

	if err := app.Serve(ctx, log, cfg.HTTPAddr, mux); err != nil {
		app.Fatal(log, err)
	}
}
