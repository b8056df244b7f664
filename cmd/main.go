package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/focushive/buddy-service/internal/app"
)

func main() {
	_ = godotenv.Load()

	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8087"
	}
	a.Log.Info("starting buddy-service", "addr", addr)
	if err := a.Run(addr); err != nil {
		a.Log.Fatal("server exited", "error", err)
	}
}
