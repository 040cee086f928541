package seeders

import (
	"errors"
	"log"
	"time"

	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	"gorm.io/gorm"
)

// ChallengeSeeder handles seeding the daily challenge catalog
type ChallengeSeeder struct {
	db *gorm.DB
}

// NewChallengeSeeder creates a new challenge seeder
func NewChallengeSeeder(db *gorm.DB) *ChallengeSeeder {
	return &ChallengeSeeder{db: db}
}

// SeedChallenges seeds the database with the base challenge catalog
func (s *ChallengeSeeder) SeedChallenges() error {
	challenges := s.getChallengeCatalog()

	for _, challenge := range challenges {
		var existing model.Challenge
		if err := s.db.Where("id = ?", challenge.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := s.db.Create(&challenge).Error; err != nil {
					log.Printf("Error creating challenge %s: %v", challenge.Title, err)
					return err
				}
				log.Printf("Created challenge: %s", challenge.Title)
			} else {
				log.Printf("Error checking challenge %s: %v", challenge.Title, err)
				return err
			}
		} else {
			log.Printf("Challenge %s already exists, skipping", challenge.Title)
		}
	}

	log.Println("Challenge seeding completed successfully")
	return nil
}

func (s *ChallengeSeeder) getChallengeCatalog() []model.Challenge {
	now := time.Now()

	challenges := []model.Challenge{
		{
			ID:             "chal_steps_8k",
			Title:          "Step It Up",
			Description:    "Walk 8,000 steps today. Every step counts, whether it's a stroll or a sprint.",
			Category:       shared.CategoryFitness,
			Difficulty:     shared.DifficultyEasy,
			XPReward:       50,
			CoinsReward:    10,
			TrackingType:   model.TrackingSteps,
			TargetValue:    8000,
			TargetUnit:     "steps",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "chal_steps_15k",
			Title:          "Road Warrior",
			Description:    "Rack up 15,000 steps in a single day.",
			Category:       shared.CategoryFitness,
			Difficulty:     shared.DifficultyHard,
			XPReward:       120,
			CoinsReward:    30,
			TrackingType:   model.TrackingSteps,
			TargetValue:    15000,
			TargetUnit:     "steps",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "chal_distance_5k",
			Title:          "Go The Distance",
			Description:    "Cover 5 kilometers on foot. Running, walking or hiking all count.",
			Category:       shared.CategoryFitness,
			Difficulty:     shared.DifficultyMedium,
			XPReward:       80,
			CoinsReward:    20,
			TrackingType:   model.TrackingDistance,
			TargetValue:    5000,
			TargetUnit:     "meters",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "chal_explore_2k",
			Title:          "New Horizons",
			Description:    "Explore somewhere new. Cover 2 kilometers away from your usual routes.",
			Category:       shared.CategoryExploration,
			Difficulty:     shared.DifficultyEasy,
			XPReward:       60,
			CoinsReward:    15,
			TrackingType:   model.TrackingDistance,
			TargetValue:    2000,
			TargetUnit:     "meters",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "chal_meditate_10m",
			Title:          "Quiet Mind",
			Description:    "Spend 10 uninterrupted minutes meditating or doing breathing exercises.",
			Category:       shared.CategoryMindfulness,
			Difficulty:     shared.DifficultyEasy,
			XPReward:       40,
			CoinsReward:    10,
			TrackingType:   model.TrackingDuration,
			TargetValue:    600,
			TargetUnit:     "seconds",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "chal_workout_30m",
			Title:          "Sweat Session",
			Description:    "Put in a 30 minute workout of any kind.",
			Category:       shared.CategoryFitness,
			Difficulty:     shared.DifficultyMedium,
			XPReward:       90,
			CoinsReward:    25,
			TrackingType:   model.TrackingDuration,
			TargetValue:    1800,
			TargetUnit:     "seconds",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:            "chal_healthy_meal",
			Title:         "Clean Plate Club",
			Description:   "Cook and eat a healthy home-made meal. Snap a photo as proof.",
			Category:      shared.CategoryNutrition,
			Difficulty:    shared.DifficultyEasy,
			XPReward:      50,
			CoinsReward:   15,
			RequiresPhoto: true,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "chal_sunrise_photo",
			Title:         "Early Bird",
			Description:   "Catch the sunrise outdoors and photograph it.",
			Category:      shared.CategoryExploration,
			Difficulty:    shared.DifficultyMedium,
			XPReward:      70,
			CoinsReward:   20,
			RequiresPhoto: true,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:          "chal_no_sugar",
			Title:       "Sugar Free Day",
			Description: "Skip added sugar for the whole day.",
			Category:    shared.CategoryNutrition,
			Difficulty:  shared.DifficultyHard,
			XPReward:    100,
			CoinsReward: 30,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "chal_workout_buddy",
			Title:       "Better Together",
			Description: "Do any challenge together with a friend.",
			Category:    shared.CategorySocial,
			Difficulty:  shared.DifficultyEasy,
			XPReward:    60,
			CoinsReward: 20,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "chal_compliment",
			Title:       "Spread The Word",
			Description: "Share your progress or cheer on another member of your squad.",
			Category:    shared.CategorySocial,
			Difficulty:  shared.DifficultyEasy,
			XPReward:    30,
			CoinsReward: 10,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:             "chal_daily_triple",
			Title:          "Hat Trick",
			Description:    "Complete 3 challenges in a single day.",
			Category:       shared.CategoryFitness,
			Difficulty:     shared.DifficultyHard,
			XPReward:       150,
			CoinsReward:    40,
			TargetValue:    3,
			TargetUnit:     "challenges",
			AutoVerifiable: true,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}

	return challenges
}
