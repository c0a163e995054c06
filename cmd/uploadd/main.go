// uploadd serves the chunked upload pipeline: session init, chunk
// ingest with dedup, completion and download manifests.
package main

import (
	"net/http"

	"github.com/driftlabs/driftbox/internal/app"
	"github.com/driftlabs/driftbox/internal/blob"
	"github.com/driftlabs/driftbox/internal/cache"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/repositories/chunks"
	"github.com/driftlabs/driftbox/internal/repositories/files"
	"github.com/driftlabs/driftbox/internal/upload"
)

func main() {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg := config.Load()
	log := logging.NewDefault("uploadd")

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

	blobs, err := blob.NewS3(ctx, blob.S3Config{
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		app.Fatal(log, err)
	}

	broker, err := messaging.Dial(ctx, cfg.AMQPURL, cfg.BrokerConnectAttempts, cfg.BrokerConnectDelay, log)
	if err != nil {
		app.Fatal(log, err)
	}
	defer broker.Close()

	chunksRepo := chunks.NewPostgres(db)
	svc := upload.NewService(
		cfg,
		log,
		upload.NewSessionStore(kv, cfg.SessionTTL),
		upload.NewDeduplicator(blobs, chunksRepo),
		upload.NewFinalizer(db, chunksRepo, broker, log),
		files.NewPostgres(db),
		chunksRepo,
		blobs,
	)

	secret := []byte(cfg.SecretKey)
	authenticate := func(next http.Handler) http.Handler {
		return httpx.Authenticate(secret, log, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("uploadd"))
	upload.NewHandler(svc, log).Register(mux, authenticate)

	if err := app.Serve(ctx, log, cfg.HTTPAddr, mux); err != nil {
		app.Fatal(log, err)
	}
}
