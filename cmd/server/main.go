package main

import (
	"log"

	_ "pmdashboard/docs"
	"pmdashboard/internal/config"
	"pmdashboard/internal/server"
)

// @title           Project Dashboard API
// @version         1.0
// @description     Role-based project management dashboard with progress analytics.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
}
