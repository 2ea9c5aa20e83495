package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"pantrack/internal/config"
	"pantrack/internal/ledgerd"
	"pantrack/internal/logging"
)

func main() {
	_ = godotenv.Load()
	logging.ConfigureRuntime()

	cfgPath := flag.String("config", "ledgerd.toml", "path to service config")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}

	store := ledgerd.NewStore(cfg.StoreConfig())
	cfg.SeedStore(store)

	srv := ledgerd.Appear(ledgerd.ServerConfig{
		ID:          cfg.ID,
		Addr:        cfg.Addr,
		Token:       cfg.Token,
		CorsOrigins: cfg.CorsOrigins,
	}, store)

	log.Info().
		Str("id", cfg.ID).
		Str("addr", cfg.Addr).
		Str("office", cfg.OfficeCode).
		Int("slips", len(cfg.Slips)).
		Msg("ledgerd starting")

	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}
