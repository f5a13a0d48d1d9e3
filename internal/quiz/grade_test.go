package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypack/internal/models"
)

func sampleQuiz() models.Quiz {
	return models.Quiz{
		MultipleChoice: []models.MCQuestion{
			{Question: "Hauptstadt von Frankreich?", Options: []string{"Berlin", "Rom", "Paris", "Madrid"}, CorrectIndex: 2},
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1},
		},
		TrueFalse: []models.TFQuestion{
			{Statement: "Die Erde ist rund", Answer: true},
			{Statement: "Wasser kocht bei 50 °C", Answer: false},
		},
		FillBlank: []models.FillBlankQuestion{
			{Sentence: "Die Hauptstadt Frankreichs ist ___", Answer: "paris"},
		},
	}
}

func TestMultipleChoiceCorrect(t *testing.T) {
	q := models.MCQuestion{Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2}
	assert.True(t, MultipleChoiceCorrect(q, 2))
	for _, idx := range []int{0, 1, 3, -1, 7} {
		assert.False(t, MultipleChoiceCorrect(q, idx), "index %d", idx)
	}
}

func TestFillBlankCorrect(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		given    string
		correct  bool
	}{
		{name: "trailing space and case", expected: "paris", given: "Paris ", correct: true},
		{name: "exact", expected: "Paris", given: "Paris", correct: true},
		{name: "upper", expected: "paris", given: "  PARIS", correct: true},
		{name: "wrong", expected: "paris", given: "Lyon", correct: false},
		{name: "empty", expected: "paris", given: "   ", correct: false},
		{name: "inner space matters", expected: "new york", given: "newyork", correct: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.correct, FillBlankCorrect(tt.expected, tt.given))
		})
	}
}

func TestGradeAllCorrect(t *testing.T) {
	res := Grade(sampleQuiz(), models.QuizAnswers{
		MultipleChoice: map[int]int{0: 2, 1: 1},
		TrueFalse:      map[int]bool{0: true, 1: false},
		FillBlank:      map[int]string{0: "Paris "},
	})

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Correct)
	assert.Equal(t, 1.0, res.Ratio)
	assert.Equal(t, 100, res.Percent())
}

func TestGradeUnansweredNeverCorrect(t *testing.T) {
	res := Grade(sampleQuiz(), models.QuizAnswers{})

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 0, res.Correct)
	for _, item := range res.Items {
		assert.False(t, item.Answered)
		assert.False(t, item.Correct)
	}
}

func TestGradeFalseIsNotUnanswered(t *testing.T) {
	// false als Antwort auf eine falsche Aussage ist richtig, fehlender Eintrag nicht
	res := Grade(sampleQuiz(), models.QuizAnswers{TrueFalse: map[int]bool{1: false}})
	assert.Equal(t, 1, res.Correct)

	require.Len(t, res.Items, 5)
	tf := res.Items[3]
	assert.Equal(t, KindTrueFalse, tf.Kind)
	assert.Equal(t, 1, tf.Index)
	assert.True(t, tf.Correct)
}

func TestGradeMixed(t *testing.T) {
	res := Grade(sampleQuiz(), models.QuizAnswers{
		MultipleChoice: map[int]int{0: 2, 1: 0},
		TrueFalse:      map[int]bool{0: false},
		FillBlank:      map[int]string{0: "paris"},
		// Antworten auf nicht vorhandene Fragen werden ignoriert
	})

	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 40, res.Percent())
	assert.Equal(t, "Paris", res.Items[0].Expected)
	assert.Equal(t, "false", res.Items[3].Expected)
}

func TestGradeIgnoresAnswersForMissingQuestions(t *testing.T) {
	res := Grade(sampleQuiz(), models.QuizAnswers{MultipleChoice: map[int]int{9: 0}})
	assert.Equal(t, 0, res.Correct)
	assert.Equal(t, 5, res.Total)
}

func TestGradeEmptyQuiz(t *testing.T) {
	res := Grade(models.Quiz{}, models.QuizAnswers{})
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0.0, res.Ratio)
	assert.Equal(t, 0, res.Percent())
}

func TestGradeIsDeterministic(t *testing.T) {
	answers := models.QuizAnswers{MultipleChoice: map[int]int{0: 2}, FillBlank: map[int]string{0: "x"}}
	assert.Equal(t, Grade(sampleQuiz(), answers), Grade(sampleQuiz(), answers))
}
