// Package quiz bewertet Quizversuche gegen ein Lernpaket.
package quiz

import (
	"strconv"
	"strings"

	"studypack/internal/models"
)

// Fragetypen
const (
	KindMultipleChoice = "multiple_choice"
	KindTrueFalse      = "true_false"
	KindFillBlank      = "fill_blank"
)

// ItemResult ist die Bewertung einer einzelnen Frage
type ItemResult struct {
	Kind     string `json:"kind"`
	Index    int    `json:"index"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Expected string `json:"expected"`
}

// Result ist die Bewertung eines kompletten Versuchs
type Result struct {
	Correct int          `json:"correct"`
	Total   int          `json:"total"`
	Ratio   float64      `json:"ratio"`
	Items   []ItemResult `json:"items"`
}

// Percent gibt den Anteil richtiger Antworten in Prozent zurück (abgerundet)
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return r.Correct * 100 / r.Total
}

// Grade bewertet die Antworten. Unbeantwortete Fragen zählen nie als richtig.
func Grade(q models.Quiz, answers models.QuizAnswers) Result {
	res := Result{Items: make([]ItemResult, 0, q.QuestionCount())}

	for i, question := range q.MultipleChoice {
		got, ok := answers.MultipleChoice[i]
		item := ItemResult{
			Kind:     KindMultipleChoice,
			Index:    i,
			Answered: ok,
			Correct:  ok && MultipleChoiceCorrect(question, got),
			Expected: optionLabel(question),
		}
		res.add(item)
	}

	for i, question := range q.TrueFalse {
		got, ok := answers.TrueFalse[i]
		item := ItemResult{
			Kind:     KindTrueFalse,
			Index:    i,
			Answered: ok,
			Correct:  ok && got == question.Answer,
			Expected: strconv.FormatBool(question.Answer),
		}
		res.add(item)
	}

	for i, question := range q.FillBlank {
		got, ok := answers.FillBlank[i]
		item := ItemResult{
			Kind:     KindFillBlank,
			Index:    i,
			Answered: ok && strings.TrimSpace(got) != "",
			Correct:  ok && FillBlankCorrect(question.Answer, got),
			Expected: question.Answer,
		}
		res.add(item)
	}

	if res.Total > 0 {
		res.Ratio = float64(res.Correct) / float64(res.Total)
	}
	return res
}

func (r *Result) add(item ItemResult) {
	r.Total++
	if item.Correct {
		r.Correct++
	}
	r.Items = append(r.Items, item)
}

// MultipleChoiceCorrect vergleicht den gewählten Index
func MultipleChoiceCorrect(q models.MCQuestion, selected int) bool {
	return selected == q.CorrectIndex
}

// FillBlankCorrect vergleicht ohne Groß-/Kleinschreibung und äußere Leerzeichen
func FillBlankCorrect(expected, given string) bool {
	given = strings.TrimSpace(given)
	if given == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(expected), given)
}

func optionLabel(q models.MCQuestion) string {
	if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
		return q.Options[q.CorrectIndex]
	}
	return strconv.Itoa(q.CorrectIndex)
}
