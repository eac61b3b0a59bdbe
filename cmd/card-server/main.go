// Command card-server serves the card form, the stored cards and their PDF
// downloads.
//
// Configuration comes from the environment (see internal/config); a .env file
// in the working directory is loaded first when present.
//
// With -mint-token the command prints a bearer token for /set-config, signed
// with CONFIG_JWT_SECRET, and exits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/business-cards/internal/auth"
	"github.com/sakif/business-cards/internal/config"
	"github.com/sakif/business-cards/internal/server"
)

func main() {
	mint := flag.String("mint-token", "", "print a /set-config token for the given subject and exit")
	ttl := flag.Duration("token-ttl", auth.DefaultTTL, "lifetime of a minted token")
	flag.Parse()

	cfg, err := config.LoadCard()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLevel(cfg.LogLevel),
	}))

	if *mint != "" {
		if err := mintToken(cfg.ConfigSecret, *mint, *ttl); err != nil {
			logger.Error("failed to mint token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	srv, err := server.NewCardServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func mintToken(secret, subject string, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("CONFIG_JWT_SECRET is not set")
	}
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		return err
	}
	token, err := tokens.GenerateWithDuration(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
