package main

import (
	"log"

	"relaychat/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := srv.Run(cfg.Port); err != nil {
		srv.Log.Fatal().Err(err).Msg("server run error")
	}
}
