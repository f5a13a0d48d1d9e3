// Package render erzeugt Textansichten (Markdown) der Reiter eines Lernpakets.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"studypack/internal/models"
	"studypack/internal/quiz"
)

// Tab ist ein Reiter der Lernpaket-Ansicht
type Tab string

const (
	TabSummary    Tab = "summary"
	TabMindMap    Tab = "mindmap"
	TabDiagram    Tab = "diagram"
	TabFlashcards Tab = "flashcards"
	TabMnemonics  Tab = "mnemonics"
	TabQuiz       Tab = "quiz"
)

// Tabs in Anzeigereihenfolge
var Tabs = []Tab{TabSummary, TabMindMap, TabDiagram, TabFlashcards, TabMnemonics, TabQuiz}

var ErrUnknownTab = errors.New("unbekannter reiter")

// Leerzustände
const (
	EmptyMnemonics  = "_Für dieses Material wurden keine Eselsbrücken erzeugt._"
	EmptyFlashcards = "_Für dieses Material wurden keine Lernkarten erzeugt._"
	EmptyQuiz       = "_Für dieses Material wurden keine Quizfragen erzeugt._"
	EmptyDiagram    = "_Kein Diagramm vorhanden._"
	EmptyMindMap    = "_Keine Mindmap vorhanden._"
)

// ParseTab liest einen Reiternamen (Groß-/Kleinschreibung egal)
func ParseTab(name string) (Tab, error) {
	tab := Tab(strings.ToLower(strings.TrimSpace(name)))
	if lo.Contains(Tabs, tab) {
		return tab, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, name)
}

// View rendert einen Reiter. result darf nil sein.
func View(pack *models.StudyPack, tab Tab, result *quiz.Result) (string, error) {
	switch tab {
	case TabSummary:
		return Summary(pack), nil
	case TabMindMap:
		return MindMap(pack.MindMap), nil
	case TabDiagram:
		return Diagram(pack.Diagram), nil
	case TabFlashcards:
		return Flashcards(pack.Flashcards), nil
	case TabMnemonics:
		return Mnemonics(pack.Mnemonics), nil
	case TabQuiz:
		return Quiz(pack.Quiz, result), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, tab)
}

// Summary rendert Titel, Kernaussage, Stichpunkte und Notizen
func Summary(pack *models.StudyPack) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", pack.Title)
	if pack.Summary.CoreConcept != "" {
		fmt.Fprintf(&b, "> %s\n\n", pack.Summary.CoreConcept)
	}
	if len(pack.Summary.KeyPoints) > 0 {
		b.WriteString("## Kernpunkte\n\n")
		for _, p := range pack.Summary.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	if pack.Summary.ShortNotes != "" {
		fmt.Fprintf(&b, "## Kurznotizen\n\n%s\n\n", pack.Summary.ShortNotes)
	}
	if pack.Summary.LongNotes != "" {
		fmt.Fprintf(&b, "## Ausführlich\n\n%s\n", pack.Summary.LongNotes)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// MindMap rendert den Baum als eingerückte Liste
func MindMap(root models.MindMapNode) string {
	if root.Label == "" && len(root.Children) == 0 {
		return EmptyMindMap + "\n"
	}
	var b strings.Builder
	writeNode(&b, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, node models.MindMapNode, depth int) {
	fmt.Fprintf(b, "%s- %s\n", strings.Repeat("  ", depth), node.Label)
	for _, child := range node.Children {
		writeNode(b, child, depth+1)
	}
}

// Diagram rendert die Schritte; bei Zyklen führt der letzte Pfeil zurück zum Anfang
func Diagram(d models.Diagram) string {
	if len(d.Steps) == 0 {
		return EmptyDiagram + "\n"
	}
	var b strings.Builder
	if d.Type != "" {
		fmt.Fprintf(&b, "**%s**\n\n", d.Type)
	}
	for i, step := range d.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	if strings.EqualFold(d.Type, "cycle") && len(d.Steps) > 1 {
		fmt.Fprintf(&b, "\n↻ %s\n", d.Steps[0])
	}
	return b.String()
}

// Flashcards rendert alle Karten mit Vorder- und Rückseite
func Flashcards(cards []models.Flashcard) string {
	if len(cards) == 0 {
		return EmptyFlashcards + "\n"
	}
	return strings.Join(lo.Map(cards, func(c models.Flashcard, i int) string {
		return fmt.Sprintf("### Karte %d/%d\n\n**Vorne:** %s\n\n**Hinten:** %s\n", i+1, len(cards), c.Front, c.Back)
	}), "\n")
}

// Mnemonics rendert die Eselsbrücken oder einen expliziten Leerzustand
func Mnemonics(items []models.Mnemonic) string {
	if len(items) == 0 {
		return EmptyMnemonics + "\n"
	}
	var b strings.Builder
	for i, m := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		if m.Type != "" {
			fmt.Fprintf(&b, "### %s\n\n", m.Type)
		}
		fmt.Fprintf(&b, "**%s**\n", m.Content)
		if m.Explanation != "" {
			fmt.Fprintf(&b, "\n%s\n", m.Explanation)
		}
	}
	return b.String()
}

// Quiz rendert alle Fragen. Mit result werden Bewertung und Lösungen angezeigt.
func Quiz(q models.Quiz, result *quiz.Result) string {
	if q.QuestionCount() == 0 {
		return EmptyQuiz + "\n"
	}

	items := map[string]quiz.ItemResult{}
	if result != nil {
		for _, item := range result.Items {
			items[fmt.Sprintf("%s/%d", item.Kind, item.Index)] = item
		}
	}
	mark := func(kind string, index int) string {
		item, ok := items[fmt.Sprintf("%s/%d", kind, index)]
		switch {
		case !ok:
			return ""
		case item.Correct:
			return " ✓"
		case !item.Answered:
			return fmt.Sprintf(" – unbeantwortet (Lösung: %s)", item.Expected)
		default:
			return fmt.Sprintf(" ✗ (Lösung: %s)", item.Expected)
		}
	}

	var b strings.Builder
	n := 0
	if result != nil {
		fmt.Fprintf(&b, "**Ergebnis: %d/%d (%d%%)**\n\n", result.Correct, result.Total, result.Percent())
	}

	if len(q.MultipleChoice) > 0 {
		b.WriteString("## Multiple Choice\n\n")
		for i, mc := range q.MultipleChoice {
			n++
			fmt.Fprintf(&b, "%d. %s%s\n", n, mc.Question, mark(quiz.KindMultipleChoice, i))
			for j, opt := range mc.Options {
				fmt.Fprintf(&b, "   %c) %s\n", 'a'+rune(j), opt)
			}
			writeExplanation(&b, result != nil, mc.Explanation)
		}
		b.WriteString("\n")
	}

	if len(q.TrueFalse) > 0 {
		b.WriteString("## Wahr oder falsch\n\n")
		for i, tf := range q.TrueFalse {
			n++
			fmt.Fprintf(&b, "%d. %s%s\n", n, tf.Statement, mark(quiz.KindTrueFalse, i))
			writeExplanation(&b, result != nil, tf.Explanation)
		}
		b.WriteString("\n")
	}

	if len(q.FillBlank) > 0 {
		b.WriteString("## Lückentext\n\n")
		for i, fb := range q.FillBlank {
			n++
			fmt.Fprintf(&b, "%d. %s%s\n", n, fb.Sentence, mark(quiz.KindFillBlank, i))
			writeExplanation(&b, result != nil, fb.Explanation)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeExplanation(b *strings.Builder, graded bool, explanation string) {
	if graded && explanation != "" {
		fmt.Fprintf(b, "   _%s_\n", explanation)
	}
}
