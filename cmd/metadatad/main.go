// metadatad serves file metadata: listing, search, lookups, deletion,
// version history and restores.
package main

import (
	"net/http"

	"github.com/driftlabs/driftbox/internal/app"
	"github.com/driftlabs/driftbox/internal/cache"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/metadata"
	"github.com/driftlabs/driftbox/internal/repositories/chunks"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/upload"
)

func main() {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg := config.Load()
	log := logging.NewDefault("metadatad")

	db, err := app.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		app.Fatal(log, err)
	}
	defer db.Close()

	kv, err := cache.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		app.Fatal(log, err)
	}
	defer kv.Close()

	broker, err := messaging.Dial(ctx, cfg.AMQPURL, cfg.BrokerConnectAttempts, cfg.BrokerConnectDelay, log)
	if err != nil {
		app.Fatal(log, err)
	}
	defer broker.Close()

	// The restore path reuses the upload finalizer: a restore is a new
	// version commit over existing chunks.
	fin := upload.NewFinalizer(db, chunks.NewPostgres(db), broker, log)
	svc := metadata.NewService(db, files.NewPostgres(db), kv, fin, broker, log)

	secret := []byte(cfg.SecretKey)
	authenticate := func(next http.Handler) http.Handler {
		return httpx.Authenticate(secret, log, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("metadatad"))
	metadata.NewHandler(svc, log).Register(mux, authenticate)

	if err := app.Serve(ctx, log, cfg.HTTPAddr, mux); err != nil {
		app.Fatal(log, err)
	}
}
