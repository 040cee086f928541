package seeders

import (
	"log"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

// NewMainSeeder creates a new main seeder
func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

// SeedAll runs all seeders
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	challengeSeeder := NewChallengeSeeder(s.db)
	if err := challengeSeeder.SeedChallenges(); err != nil {
		log.Printf("Challenge seeding failed: %v", err)
		return err
	}

	badgeSeeder := NewBadgeSeeder(s.db)
	if err := badgeSeeder.SeedBadges(); err != nil {
		log.Printf("Badge seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedChallengesOnly seeds only the challenge catalog
func (s *MainSeeder) SeedChallengesOnly() error {
	challengeSeeder := NewChallengeSeeder(s.db)
	return challengeSeeder.SeedChallenges()
}

// SeedBadgesOnly seeds only badges
func (s *MainSeeder) SeedBadgesOnly() error {
	badgeSeeder := NewBadgeSeeder(s.db)
	return badgeSeeder.SeedBadges()
}
