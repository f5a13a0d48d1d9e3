package llm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"

	"studypack/internal/models"
)

// Max. Zeichen pro extrahiertem Dokument im Prompt
const maxDocumentChars = 30000

var (
	schemaOnce sync.Once
	schemaJSON string
)

// StudyPackSchema gibt das JSON-Schema des Lernpakets zurück
func StudyPackSchema() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties:  false,
			RequiredFromJSONSchemaTags: true,
		}
		schema := reflector.Reflect(&models.StudyPack{})
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			log.Printf("⚠️  Schema konnte nicht erzeugt werden: %v", err)
			return
		}
		schemaJSON = string(data)
	})
	return schemaJSON
}

// SystemInstruction beschreibt dem Modell das erwartete Ausgabeformat
func SystemInstruction() string {
	return fmt.Sprintf(`You are an expert tutor. Turn the provided material into a complete study pack.
Answer with exactly one JSON object and nothing else. It must validate against this JSON schema:

%s

Rules:
- The mind map has one root node named after the topic.
- Each multiple choice question has 4 options, correct_index is zero-based.
- Fill-in-the-blank sentences mark the gap with ___.
- Answer in the language of the material.`, StudyPackSchema())
}

// UserPrompt baut den Textteil der Anfrage
func UserPrompt(text string, fileCount int) string {
	text = strings.TrimSpace(text)
	switch {
	case text != "" && fileCount > 0:
		return "Create a study pack from the following notes and the attached files.\n\n" + text
	case fileCount > 0:
		return "Create a study pack from the attached files."
	default:
		return "Create a study pack from the following notes.\n\n" + text
	}
}

func limitContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "\n[... gekürzt ...]"
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "{}"
	}
	return text[start : end+1]
}

func decodeFileData(f models.UploadedFile) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("datei '%s' ist kein gültiges base64: %w", f.Name, err)
	}
	return raw, nil
}

// ParseStudyPack liest ein Lernpaket aus einer Modellantwort.
// Ungültige Quizfragen werden verworfen, leere Listen normalisiert.
func ParseStudyPack(response string) (*models.StudyPack, error) {
	jsonStr := extractJSON(response)

	var pack models.StudyPack
	if err := json.Unmarshal([]byte(jsonStr), &pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if pack.IsEmpty() {
		return nil, fmt.Errorf("%w: leeres Lernpaket", ErrMalformedResponse)
	}

	normalizePack(&pack)
	return &pack, nil
}

func normalizePack(pack *models.StudyPack) {
	before := len(pack.Quiz.MultipleChoice)
	pack.Quiz.MultipleChoice = lo.Filter(pack.Quiz.MultipleChoice, func(q models.MCQuestion, _ int) bool {
		return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
	})
	if dropped := before - len(pack.Quiz.MultipleChoice); dropped > 0 {
		log.Printf("   ⚠️ %d Multiple-Choice-Fragen mit ungültigem Index verworfen", dropped)
	}

	pack.Quiz.FillBlank = lo.Filter(pack.Quiz.FillBlank, func(q models.FillBlankQuestion, _ int) bool {
		return strings.TrimSpace(q.Answer) != ""
	})

	if pack.Summary.KeyPoints == nil {
		pack.Summary.KeyPoints = []string{}
	}
	if pack.Flashcards == nil {
		pack.Flashcards = []models.Flashcard{}
	}
	if pack.Mnemonics == nil {
		pack.Mnemonics = []models.Mnemonic{}
	}
	if pack.Quiz.MultipleChoice == nil {
		pack.Quiz.MultipleChoice = []models.MCQuestion{}
	}
	if pack.Quiz.TrueFalse == nil {
		pack.Quiz.TrueFalse = []models.TFQuestion{}
	}
	if pack.Quiz.FillBlank == nil {
		pack.Quiz.FillBlank = []models.FillBlankQuestion{}
	}
	if pack.MindMap.Label == "" {
		pack.MindMap.Label = pack.Title
	}
}
