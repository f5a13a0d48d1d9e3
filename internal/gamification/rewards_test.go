package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"studypack/internal/models"
)

func TestQuizRewardTiers(t *testing.T) {
	tests := []struct {
		name     string
		correct  int
		total    int
		expected int
	}{
		{name: "perfect", correct: 10, total: 10, expected: 100},
		{name: "80 percent", correct: 4, total: 5, expected: 50},
		{name: "half", correct: 5, total: 10, expected: 25},
		{name: "one right", correct: 1, total: 10, expected: AnyCorrectXP},
		{name: "nothing right", correct: 0, total: 10, expected: ParticipationXP},
		{name: "empty quiz", correct: 0, total: 0, expected: 0},
		{name: "clamped", correct: 12, total: 10, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuizReward(tt.correct, tt.total))
		})
	}
}

func TestQuizRewardIsMonotonic(t *testing.T) {
	for total := 1; total <= 40; total++ {
		prev := -1
		for correct := 0; correct <= total; correct++ {
			xp := QuizReward(correct, total)
			assert.GreaterOrEqual(t, xp, prev, "%d/%d", correct, total)
			prev = xp
		}
	}

	prev := -1
	for i := 0; i <= 1000; i++ {
		xp := RewardForRatio(float64(i) / 1000)
		assert.GreaterOrEqual(t, xp, prev, "ratio %v", float64(i)/1000)
		prev = xp
	}
}

func TestDeckReward(t *testing.T) {
	assert.Equal(t, DeckXP, DeckReward(12))
	assert.Equal(t, 0, DeckReward(0))
}

func TestNextStreak(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, loc)
	at := func(days int, hour int) *time.Time {
		ts := time.Date(2026, 10, 16+days, hour, 0, 0, 0, loc)
		return &ts
	}

	tests := []struct {
		name       string
		lastActive *time.Time
		streak     int
		expected   int
	}{
		{name: "first activity", lastActive: nil, streak: 0, expected: 1},
		{name: "same day", lastActive: at(0, 1), streak: 3, expected: 3},
		{name: "yesterday late", lastActive: at(-1, 23), streak: 3, expected: 4},
		{name: "yesterday early", lastActive: at(-1, 0), streak: 3, expected: 4},
		{name: "gap", lastActive: at(-2, 12), streak: 9, expected: 1},
		{name: "zero streak restarts", lastActive: at(-1, 12), streak: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextStreak(tt.lastActive, now, tt.streak))
		})
	}
}

func TestNextStreakAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("keine Zeitzonendaten")
	}
	last := time.Date(2026, 10, 24, 22, 0, 0, 0, loc)
	now := time.Date(2026, 10, 25, 8, 0, 0, 0, loc) // Umstellung auf Winterzeit
	assert.Equal(t, 5, NextStreak(&last, now, 4))
}

func TestEarnedBadges(t *testing.T) {
	p := models.UserProfile{
		XP:     1200,
		Streak: 7,
		Analytics: models.Analytics{
			QuizAttempts:      10,
			FlashcardsLearned: 50,
		},
	}
	assert.ElementsMatch(t, []string{
		BadgeFirstQuiz, BadgePerfectScore, BadgeQuizVeteran, BadgeFlashcardMaster, BadgeStreak7, BadgeXP1000,
	}, EarnedBadges(p, true))

	assert.Empty(t, EarnedBadges(models.UserProfile{}, false))
}

func TestNewBadgesSkipsExisting(t *testing.T) {
	p := models.UserProfile{Badges: []string{BadgeFirstQuiz}, Analytics: models.Analytics{QuizAttempts: 1}}
	assert.Equal(t, []string{BadgePerfectScore}, NewBadges(p, true))
}
