package gamification

import (
	"math"
	"time"

	"github.com/samber/lo"

	"studypack/internal/models"
)

// Badge-Namen
const (
	BadgeFirstQuiz       = "first_quiz"
	BadgePerfectScore    = "perfect_score"
	BadgeQuizVeteran     = "quiz_veteran"
	BadgeFlashcardMaster = "flashcard_master"
	BadgeStreak7         = "streak_7"
	BadgeXP1000          = "xp_1000"
)

const (
	// DeckXP gibt es für jedes abgeschlossene Kartendeck
	DeckXP = 20
	// AnyCorrectXP: mindestens eine richtige Antwort, aber unter der niedrigsten Stufe
	AnyCorrectXP = 10
	// ParticipationXP: Quiz abgegeben, nichts richtig
	ParticipationXP = 5
)

// Tier ist eine Stufe der Quiz-Belohnung
type Tier struct {
	MinRatio float64
	XP       int
}

// QuizTiers ist absteigend nach MinRatio sortiert
var QuizTiers = []Tier{
	{MinRatio: 1.0, XP: 100},
	{MinRatio: 0.8, XP: 50},
	{MinRatio: 0.5, XP: 25},
}

// QuizReward berechnet die XP für einen Quizversuch
func QuizReward(correct, total int) int {
	if total <= 0 {
		return 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	return RewardForRatio(float64(correct) / float64(total))
}

// RewardForRatio sucht die erste passende Stufe
func RewardForRatio(ratio float64) int {
	for _, tier := range QuizTiers {
		if ratio >= tier.MinRatio {
			return tier.XP
		}
	}
	if ratio > 0 {
		return AnyCorrectXP
	}
	return ParticipationXP
}

// DeckReward gibt die XP für ein abgeschlossenes Deck zurück
func DeckReward(cards int) int {
	if cards <= 0 {
		return 0
	}
	return DeckXP
}

// NextStreak berechnet die Serie nach einer Aktivität zum Zeitpunkt now.
// Gleicher Tag: unverändert, Folgetag: +1, sonst Neustart bei 1.
func NextStreak(lastActive *time.Time, now time.Time, streak int) int {
	if lastActive == nil || streak <= 0 {
		return 1
	}

	last := truncateDay(lastActive.In(now.Location()))
	today := truncateDay(now)

	switch days := int(math.Round(today.Sub(last).Hours() / 24)); {
	case days <= 0:
		return streak
	case days == 1:
		return streak + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

// EarnedBadges gibt alle Badges zurück, die das Profil verdient hat.
// perfect gibt an, ob der aktuelle Versuch fehlerfrei war.
func EarnedBadges(p models.UserProfile, perfect bool) []string {
	var badges []string
	if p.Analytics.QuizAttempts >= 1 {
		badges = append(badges, BadgeFirstQuiz)
	}
	if perfect {
		badges = append(badges, BadgePerfectScore)
	}
	if p.Analytics.QuizAttempts >= 10 {
		badges = append(badges, BadgeQuizVeteran)
	}
	if p.Analytics.FlashcardsLearned >= 50 {
		badges = append(badges, BadgeFlashcardMaster)
	}
	if p.Streak >= 7 {
		badges = append(badges, BadgeStreak7)
	}
	if p.XP >= 1000 {
		badges = append(badges, BadgeXP1000)
	}
	return badges
}

// NewBadges gibt die verdienten Badges zurück, die das Profil noch nicht hat
func NewBadges(p models.UserProfile, perfect bool) []string {
	return lo.Filter(EarnedBadges(p, perfect), func(b string, _ int) bool {
		return !p.HasBadge(b)
	})
}
