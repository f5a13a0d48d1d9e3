package models

import "time"

// StudyPack ist das komplette Lernpaket aus einer Generierungsanfrage
type StudyPack struct {
	ID         string      `json:"id,omitempty" jsonschema:"-"`
	Title      string      `json:"title" jsonschema:"required,description=Kurzer Titel des Themas"`
	Summary    Summary     `json:"summary" jsonschema:"required"`
	MindMap    MindMapNode `json:"mind_map" jsonschema:"required"`
	Diagram    Diagram     `json:"diagram" jsonschema:"required"`
	Flashcards []Flashcard `json:"flashcards" jsonschema:"required"`
	Mnemonics  []Mnemonic  `json:"mnemonics" jsonschema:"required"`
	Quiz       Quiz        `json:"quiz" jsonschema:"required"`
	CreatedAt  time.Time   `json:"created_at,omitempty" jsonschema:"-"`
}

// Summary enthält die Zusammenfassung des Materials
type Summary struct {
	CoreConcept string   `json:"core_concept" jsonschema:"required"`
	KeyPoints   []string `json:"key_points" jsonschema:"required"`
	ShortNotes  string   `json:"short_notes" jsonschema:"required"`
	LongNotes   string   `json:"long_notes" jsonschema:"required"`
}

// MindMapNode ist ein Knoten der Mindmap (rekursiv)
type MindMapNode struct {
	Label    string        `json:"label" jsonschema:"required"`
	Children []MindMapNode `json:"children,omitempty"`
}

// Diagram beschreibt einen Ablauf als geordnete Schritte
type Diagram struct {
	Type  string   `json:"type" jsonschema:"required,description=z.B. flowchart oder cycle"`
	Steps []string `json:"steps" jsonschema:"required"`
}

// Flashcard ist eine Lernkarte mit Vorder- und Rückseite
type Flashcard struct {
	Front string `json:"front" jsonschema:"required"`
	Back  string `json:"back" jsonschema:"required"`
}

// Mnemonic ist eine Eselsbrücke
type Mnemonic struct {
	Type        string `json:"type" jsonschema:"required,description=z.B. acronym oder story"`
	Content     string `json:"content" jsonschema:"required"`
	Explanation string `json:"explanation" jsonschema:"required"`
}

// Quiz enthält drei getrennt typisierte Fragensammlungen
type Quiz struct {
	MultipleChoice []MCQuestion        `json:"multiple_choice" jsonschema:"required"`
	TrueFalse      []TFQuestion        `json:"true_false" jsonschema:"required"`
	FillBlank      []FillBlankQuestion `json:"fill_blank" jsonschema:"required"`
}

// MCQuestion ist eine Multiple-Choice-Frage
type MCQuestion struct {
	Question     string   `json:"question" jsonschema:"required"`
	Options      []string `json:"options" jsonschema:"required"`
	CorrectIndex int      `json:"correct_index" jsonschema:"required,minimum=0"`
	Explanation  string   `json:"explanation,omitempty"`
}

// TFQuestion ist eine Richtig/Falsch-Aussage
type TFQuestion struct {
	Statement   string `json:"statement" jsonschema:"required"`
	Answer      bool   `json:"answer" jsonschema:"required"`
	Explanation string `json:"explanation,omitempty"`
}

// FillBlankQuestion ist ein Lückentext mit genau einer Lücke
type FillBlankQuestion struct {
	Sentence    string `json:"sentence" jsonschema:"required,description=Satz mit ___ als Lücke"`
	Answer      string `json:"answer" jsonschema:"required"`
	Explanation string `json:"explanation,omitempty"`
}

// QuestionCount gibt die Gesamtzahl der Quizfragen zurück
func (q Quiz) QuestionCount() int {
	return len(q.MultipleChoice) + len(q.TrueFalse) + len(q.FillBlank)
}

// IsEmpty meldet ein Paket ohne verwertbaren Inhalt
func (p *StudyPack) IsEmpty() bool {
	return p.Title == "" && p.Summary.CoreConcept == "" && len(p.Flashcards) == 0 && p.Quiz.QuestionCount() == 0
}

// QuizAnswers sind die Antworten eines Quizversuchs, nach Fragenindex.
// Fehlende Einträge gelten als unbeantwortet.
type QuizAnswers struct {
	MultipleChoice map[int]int    `json:"multiple_choice,omitempty"`
	TrueFalse      map[int]bool   `json:"true_false,omitempty"`
	FillBlank      map[int]string `json:"fill_blank,omitempty"`
}

// UploadedFile ist eine hochgeladene Datei, nur für die Dauer einer Anfrage im Speicher
type UploadedFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// UserProfile ist das Gamification-Profil eines Nutzers
type UserProfile struct {
	UserID     string     `json:"user_id"`
	Streak     int        `json:"streak"`
	XP         int        `json:"xp"`
	Badges     []string   `json:"badges"`
	Analytics  Analytics  `json:"analytics"`
	LastActive *time.Time `json:"last_active,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Analytics sind die Lernstatistiken im Profil
type Analytics struct {
	FlashcardsLearned int `json:"flashcards_learned"`
	QuizAttempts      int `json:"quiz_attempts"`
	TotalQuizScore    int `json:"total_quiz_score"`
}

// HasBadge prüft, ob ein Abzeichen bereits vergeben ist
func (p *UserProfile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}
