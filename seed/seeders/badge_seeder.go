package seeders

import (
	"errors"
	"log"
	"time"

	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	"gorm.io/gorm"
)

// BadgeSeeder handles seeding the badge catalog
type BadgeSeeder struct {
	db *gorm.DB
}

// NewBadgeSeeder creates a new badge seeder
func NewBadgeSeeder(db *gorm.DB) *BadgeSeeder {
	return &BadgeSeeder{db: db}
}

// SeedBadges seeds the database with the base badge catalog
func (s *BadgeSeeder) SeedBadges() error {
	badges := s.getBadgeCatalog()

	for _, badge := range badges {
		var existing model.Badge
		if err := s.db.Where("id = ?", badge.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := s.db.Create(&badge).Error; err != nil {
					log.Printf("Error creating badge %s: %v", badge.Name, err)
					return err
				}
				log.Printf("Created badge: %s", badge.Name)
			} else {
				log.Printf("Error checking badge %s: %v", badge.Name, err)
				return err
			}
		} else {
			log.Printf("Badge %s already exists, skipping", badge.Name)
		}
	}

	log.Println("Badge seeding completed successfully")
	return nil
}

func (s *BadgeSeeder) getBadgeCatalog() []model.Badge {
	now := time.Now()

	badges := []model.Badge{
		{
			ID:               "badge_first_steps",
			Name:             "First Steps",
			Description:      "Complete your first challenge",
			IconURL:          "/assets/badges/first_steps.png",
			Rarity:           shared.RarityCommon,
			RequirementType:  model.BadgeChallengesCompleted,
			RequirementValue: 1,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_regular",
			Name:             "Regular",
			Description:      "Complete 25 challenges",
			IconURL:          "/assets/badges/regular.png",
			Rarity:           shared.RarityCommon,
			RequirementType:  model.BadgeChallengesCompleted,
			RequirementValue: 25,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_centurion",
			Name:             "Centurion",
			Description:      "Complete 100 challenges",
			IconURL:          "/assets/badges/centurion.png",
			Rarity:           shared.RarityEpic,
			RequirementType:  model.BadgeChallengesCompleted,
			RequirementValue: 100,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_on_fire",
			Name:             "On Fire",
			Description:      "Keep a 7 day streak alive",
			IconURL:          "/assets/badges/on_fire.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeStreakDays,
			RequirementValue: 7,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_unstoppable",
			Name:             "Unstoppable",
			Description:      "Keep a 30 day streak alive",
			IconURL:          "/assets/badges/unstoppable.png",
			Rarity:           shared.RarityEpic,
			RequirementType:  model.BadgeStreakDays,
			RequirementValue: 30,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_immortal",
			Name:             "Immortal",
			Description:      "Keep a 100 day streak alive",
			IconURL:          "/assets/badges/immortal.png",
			Rarity:           shared.RarityLegendary,
			RequirementType:  model.BadgeStreakDays,
			RequirementValue: 100,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_rising_star",
			Name:             "Rising Star",
			Description:      "Reach level 5",
			IconURL:          "/assets/badges/rising_star.png",
			Rarity:           shared.RarityCommon,
			RequirementType:  model.BadgeLevelReached,
			RequirementValue: 5,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_veteran",
			Name:             "Veteran",
			Description:      "Reach level 20",
			IconURL:          "/assets/badges/veteran.png",
			Rarity:           shared.RarityEpic,
			RequirementType:  model.BadgeLevelReached,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_xp_hoarder",
			Name:             "XP Hoarder",
			Description:      "Earn 10,000 lifetime XP",
			IconURL:          "/assets/badges/xp_hoarder.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeXPEarned,
			RequirementValue: 10000,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_iron_body",
			Name:             "Iron Body",
			Description:      "Complete 20 fitness challenges",
			IconURL:          "/assets/badges/iron_body.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeCategoryMaster,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_calm_mind",
			Name:             "Calm Mind",
			Description:      "Complete 20 mindfulness challenges",
			IconURL:          "/assets/badges/calm_mind.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeCategoryMaster,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_clean_plate",
			Name:             "Clean Plate",
			Description:      "Complete 20 nutrition challenges",
			IconURL:          "/assets/badges/clean_plate.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeCategoryMaster,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_social_animal",
			Name:             "Social Animal",
			Description:      "Complete 20 social challenges",
			IconURL:          "/assets/badges/social_animal.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeCategoryMaster,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "badge_pathfinder",
			Name:             "Pathfinder",
			Description:      "Complete 20 exploration challenges",
			IconURL:          "/assets/badges/pathfinder.png",
			Rarity:           shared.RarityRare,
			RequirementType:  model.BadgeCategoryMaster,
			RequirementValue: 20,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	return badges
}
