package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"opportunity_engine/pkg/api/config"
	"opportunity_engine/pkg/api/model"
	"opportunity_engine/pkg/core/store"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type serverConfig struct {
	Port    string `yaml:"port"`
	Storage struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"storage"`
}

func main() {
	// Load environment variables
	godotenv.Load()

	// Server config is optional; defaults cover local development.
	cfg := serverConfig{Port: "8080"}
	if configData, err := os.ReadFile("config/server.yaml"); err == nil {
		if err := yaml.Unmarshal(configData, &cfg); err != nil {
			fmt.Printf("[WARNING] Failed to parse config/server.yaml: %v\n", err)
		}
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	// Scenario persistence is only wired when both the config and the
	// environment provide a database.
	storageEnabled := false
	if cfg.Storage.Enabled && (os.Getenv("SCENARIO_DATABASE_URL") != "" || os.Getenv("DATABASE_URL") != "") {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database init failed, running without storage: %v\n", err)
		} else {
			storageEnabled = true
			defer store.Close()
			fmt.Println("[STORE] Scenario storage connected.")
		}
	}

	model.InitHandler(storageEnabled)

	// Config endpoints
	configHandler := config.NewHandler(storageEnabled)
	http.HandleFunc("/api/config", configHandler.HandleConfig)

	// Projection endpoints
	http.HandleFunc("/api/model/calculate", model.HandleCalculate)
	http.HandleFunc("/api/model/evidence", model.HandleEvidence)
	http.HandleFunc("/api/model/sweep", model.HandleSweep)
	http.HandleFunc("/api/model/validate", model.HandleValidate)

	// Scenario endpoints
	http.HandleFunc("/api/scenarios", model.HandleScenarios)
	http.HandleFunc("/api/scenario", model.HandleScenario)

	fmt.Printf("API server starting on :%s...\n", cfg.Port)
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/model/calculate")
	fmt.Println("  - POST /api/model/evidence")
	fmt.Println("  - POST /api/model/sweep")
	fmt.Println("  - POST /api/model/validate")
	fmt.Println("  - GET/POST /api/scenarios")
	fmt.Println("  - GET/DELETE /api/scenario?id=...")

	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
