package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"os"
)

func main() {
	fv := registerFlags()
	flag.Parse()
	cfg := loadConfig(*fv.configPath)
	fv.applyTo(&cfg)
	if cfg.Dev {
		cfg.LogDebug = true
	}

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("wolfden.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	if err := InitAppLogger(cfg.toLogConfig()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer CloseAppLogger()
	if appLogger.IsEnabled() {
		log.Println("Extended logging enabled")
	}

	// A broken role table is a startup failure, never a game-time one.
	if err := validateCatalog(cfg.MinPlayers, cfg.MaxPlayers); err != nil {
		log.Fatal("Role catalog misconfigured: ", err)
	}

	store, err := openStore(cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.close()

	initStoryteller(cfg)

	reg := newRegistry()
	hub := newHub(reg, store, cfg.gameConfig())
	go hub.run()
	defer hub.stop()

	// A previous process may have died holding channels; release them
	// before accepting new games.
	reconcileOrphans(store, hub)

	http.HandleFunc("/ws", hub.handleWebSocket)
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Printf("Server starting on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, nil))
}
