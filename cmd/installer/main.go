package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gridx-backend/config"
	"gridx-backend/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}
	command, email := os.Args[1], os.Args[2]

	var installer bool
	switch command {
	case "grant":
		installer = true
	case "revoke":
		installer = false
	default:
		printUsage()
		os.Exit(1)
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := config.ConnectDB(ctx, config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	}); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer config.CloseDB()

	user, err := services.NewAccountService(config.DB).SetInstaller(ctx, email, installer)
	if err != nil {
		log.Fatalf("Failed to %s installer role for %s: %v", command, email, err)
	}
	log.Printf("User %d (%s) installer=%t", user.ID, user.Email, user.IsInstaller)
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/installer [grant|revoke] <email>")
}
