package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"doacoes/internal/config"
	"doacoes/internal/connectors"
	"doacoes/internal/listener"
	"doacoes/internal/logger"
	"doacoes/internal/objectstore"
	"doacoes/internal/receipts"
	"doacoes/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := objectstore.New(ctx, cfg)
	must(err)
	conn, err := connectors.New(cfg, cfg.ReceiptListenerProvider)
	must(err)

	intake := receipts.NewIntake(db, conn, store, log)
	must(listener.NewService(intake, cfg, log).Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
