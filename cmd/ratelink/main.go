package main

import (
	"flag"
	"log"

	"github.com/you/ratelink/internal/app"
	"github.com/you/ratelink/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatalf("app: %v", err)
	}
}
