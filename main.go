package main

import (
	"log"

	"github.com/joho/godotenv"

	"invoicesnap/cmd"
	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
)

func main() {
	// A missing .env is normal; the environment alone is enough.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting invoicesnap")

	cmd.Execute()
}
