package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbbouncer/pgconvey/internal/api"
	"github.com/dbbouncer/pgconvey/internal/config"
	"github.com/dbbouncer/pgconvey/internal/health"
	"github.com/dbbouncer/pgconvey/internal/metrics"
	"github.com/dbbouncer/pgconvey/internal/proxy"
	"github.com/dbbouncer/pgconvey/internal/router"
	"github.com/dbbouncer/pgconvey/internal/sessions"
)

// sessionHistorySize bounds the in-memory ring buffer the /sessions API
// endpoint reads from.
const sessionHistorySize = 200

func main() {
	configPath := flag.String("config", "configs/pgconvey.yaml", "path to configuration file")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("pgconvey starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Configuration loaded from %s (%d routes)", *configPath, len(cfg.Routes))

	m := metrics.New()
	r := router.New(cfg)
	hc := health.NewChecker(r, m, cfg.HealthCheck)
	sr := sessions.NewRecorder(sessionHistorySize)

	hc.Start()

	proxyServer := proxy.NewServer(r, hc, m, sr, cfg.Listen)
	if err := proxyServer.ListenPostgres(cfg.Listen.PostgresPort); err != nil {
		log.Fatalf("Failed to start PostgreSQL proxy: %v", err)
	}

	apiServer := api.NewServer(r, hc, m, sr, cfg.Listen)
	if err := apiServer.Start(cfg.Listen.APIPort); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	configWatcher, err := config.NewWatcher(*configPath, func(newCfg *config.Config) {
		log.Printf("Reloading configuration...")
		r.Reload(newCfg)
	})
	if err != nil {
		log.Printf("Warning: config hot-reload not available: %v", err)
	}

	log.Printf("pgconvey ready - PG:%d API:%d", cfg.Listen.PostgresPort, cfg.Listen.APIPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %s, shutting down...", sig)

	if configWatcher != nil {
		configWatcher.Stop()
	}
	apiServer.Stop()
	proxyServer.Stop()
	hc.Stop()

	log.Printf("pgconvey stopped")
}
