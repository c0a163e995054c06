// authd serves the account lifecycle: signup, login, refresh, logout.
package main

import (
	"net/http"

	"github.com/driftlabs/driftbox/internal/account"
	"github.com/driftlabs/driftbox/internal/app"
	"github.com/driftlabs/driftbox/internal/config"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/repositories/tokens"
	"github.com/driftlabs/driftbox/internal/repositories/users"
)

func main() {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg := config.Load()
	log := logging.NewDefault("authd")

	db, err := app.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		app.Fatal(log, err)
	}
	defer db.Close()

	secret := []byte(cfg.SecretKey)
	svc := account.NewService(
		users.NewPostgres(db),
		tokens.NewPostgres(db),
		secret,
		cfg.AccessTokenValidityDuration,
		cfg.RefreshTokenValidityDuration,
		log,
	)

	authenticate := func(next http.Handler) http.Handler {
		return httpx.Authenticate(secret, log, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("authd"))
	account.NewHandler(svc, log).Register(mux, authenticate)

	if err := app.Serve(ctx, log, cfg.HTTPAddr, mux); err != nil {
		app.Fatal(log, err)
	}
}
