package shared

const (
	UserID = "user_id"

	CategoryFitness     = "fitness"
	CategoryMindfulness = "mindfulness"
	CategoryNutrition   = "nutrition"
	CategorySocial      = "social"
	CategoryExploration = "exploration"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)
