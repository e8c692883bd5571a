package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"github.com/daniacca/mcreact/internal/runstore"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	store, err := runstore.Open(cfg.StoreDir)
	if err != nil {
		logger.Fatalf("cannot open run store: %v", err)
	}
	defer store.Close()

	srv := NewServer(cfg, store, logger)
	defer srv.close()

	mux := srv.routes()

	logger.Infof("mcreact-server listening on %s (config=%s)", cfg.Addr, cfg.ConfigFile)
	logger.Fatalf("%v", http.ListenAndServe(cfg.Addr, mux))
}
