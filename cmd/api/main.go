package main

import (
	"log"
	"os"

	"github.com/datadeck-io/datadeck-api/internal/config"
	"github.com/datadeck-io/datadeck-api/pkg/app"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	configPath := os.Getenv("DATADECK_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration from YAML
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	server := app.New(cfg)

	log.Println("Starting DataDeck API server...")
	if err := server.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
