package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fitquest-app/fitquest_api/seed/seeders"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, challenges, badges")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	db, err := gorm.Open(postgres.Open(databaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		if err := mainSeeder.SeedAll(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	case "challenges":
		log.Println("Seeding challenge catalog only...")
		if err := mainSeeder.SeedChallengesOnly(); err != nil {
			log.Fatalf("Failed to seed challenges: %v", err)
		}
	case "badges":
		log.Println("Seeding badges only...")
		if err := mainSeeder.SeedBadgesOnly(); err != nil {
			log.Fatalf("Failed to seed badges: %v", err)
		}
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'challenges' or 'badges'", *seedType)
	}

	log.Println("Seeding operation completed successfully!")
}

func databaseDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	dbname := envOr("DB_NAME", "fitquest")
	sslmode := envOr("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func showHelp() {
	log.Println(`
Database Seeding Tool for the FitQuest API

Usage: go run seed/main.go [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, challenges, badges
  -help
        Show this help message

Examples:
  # Seed everything
  go run seed/main.go

  # Seed only the challenge catalog
  go run seed/main.go -type=challenges

Environment Variables:
  DATABASE_URL or DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME/DB_SSLMODE`)
}
