package studypack

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"studypack/internal/audio"
	"studypack/internal/gamification"
	"studypack/internal/llm"
	"studypack/internal/models"
	"studypack/internal/quiz"
	"studypack/internal/storage"
)

var (
	ErrBusy            = errors.New("es läuft bereits eine anfrage, bitte warten")
	ErrNoActivePack    = errors.New("kein aktives lernpaket")
	ErrEmptyInput      = errors.New("text oder mindestens eine datei erforderlich")
	ErrEmptyText       = errors.New("kein text angegeben")
	ErrUnsupportedFile = errors.New("nur bilder und pdf-dateien werden unterstützt")
	ErrTooManyFiles    = errors.New("zu viele dateien")
	ErrFileTooLarge    = errors.New("dateien sind zu groß")
)

// Input ist das Material für ein neues Lernpaket
type Input struct {
	Text  string                `json:"text"`
	Files []models.UploadedFile `json:"files"`
}

// Options steuert Limits und Standardwerte des Service
type Options struct {
	MaxFiles       int
	MaxUploadBytes int64
	Voice          string
	Temperature    float64
}

// QuizOutcome ist das Ergebnis einer Quiz-Abgabe
type QuizOutcome struct {
	Result    quiz.Result         `json:"result"`
	XP        int                 `json:"xp_awarded"`
	NewBadges []string            `json:"new_badges"`
	Profile   *models.UserProfile `json:"profile,omitempty"`
}

// DeckOutcome ist das Ergebnis eines abgeschlossenen Kartendecks
type DeckOutcome struct {
	Cards     int                 `json:"cards"`
	XP        int                 `json:"xp_awarded"`
	NewBadges []string            `json:"new_badges"`
	Profile   *models.UserProfile `json:"profile,omitempty"`
}

// busyFlag verhindert parallele Ausführung derselben Aktion
type busyFlag struct {
	mu         sync.Mutex
	inProgress bool
}

func (b *busyFlag) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inProgress {
		return false
	}
	b.inProgress = true
	return true
}

func (b *busyFlag) release() {
	b.mu.Lock()
	b.inProgress = false
	b.mu.Unlock()
}

func (b *busyFlag) busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inProgress
}

// Service verbindet LLM, Bewertung, Belohnungen und Profil
type Service struct {
	provider llm.Provider
	store    storage.Storage
	opts     Options
	now      func() time.Time

	generating busyFlag
	speaking   busyFlag

	// Aktive Pakete bleiben auch erhalten, wenn das Speichern fehlschlägt
	activeMu sync.RWMutex
	active   map[string]*models.StudyPack
}

// NewService erstellt einen neuen Service
func NewService(provider llm.Provider, store storage.Storage, opts Options) *Service {
	return &Service{
		provider: provider,
		store:    store,
		opts:     opts,
		now:      time.Now,
		active:   make(map[string]*models.StudyPack),
	}
}

// Provider gibt den verwendeten LLM-Provider zurück
func (s *Service) Provider() llm.Provider {
	return s.provider
}

// Generating meldet, ob gerade ein Lernpaket erzeugt wird
func (s *Service) Generating() bool {
	return s.generating.busy()
}

// Speaking meldet, ob gerade Sprache erzeugt wird
func (s *Service) Speaking() bool {
	return s.speaking.busy()
}

// Validate prüft das Material vor dem LLM-Aufruf
func (s *Service) Validate(in Input) error {
	if strings.TrimSpace(in.Text) == "" && len(in.Files) == 0 {
		return ErrEmptyInput
	}
	if s.opts.MaxFiles > 0 && len(in.Files) > s.opts.MaxFiles {
		return fmt.Errorf("%w: maximal %d", ErrTooManyFiles, s.opts.MaxFiles)
	}

	for _, f := range in.Files {
		if !SupportedMimeType(f.MimeType) {
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedFile, f.Name, f.MimeType)
		}
		if f.Data == "" {
			return fmt.Errorf("%w: %s ist leer", ErrUnsupportedFile, f.Name)
		}
	}

	total := lo.SumBy(in.Files, func(f models.UploadedFile) int64 {
		return int64(base64.StdEncoding.DecodedLen(len(f.Data)))
	})
	if s.opts.MaxUploadBytes > 0 && total > s.opts.MaxUploadBytes {
		return fmt.Errorf("%w: %d Bytes, erlaubt sind %d", ErrFileTooLarge, total, s.opts.MaxUploadBytes)
	}
	return nil
}

// SupportedMimeType erlaubt Bilder und PDFs
func SupportedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// Generate erzeugt ein neues Lernpaket und macht es zum aktiven Paket des Nutzers
func (s *Service) Generate(ctx context.Context, userID string, in Input) (*models.StudyPack, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	if !s.generating.acquire() {
		log.Println("⚠️ Lernpaket-Erstellung läuft bereits, ignoriere Anfrage")
		return nil, ErrBusy
	}
	defer s.generating.release()

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("📦 LERNPAKET ERSTELLEN - Start")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("📝 Text: %d Zeichen, 📎 Dateien: %d", len(in.Text), len(in.Files))
	start := time.Now()

	pack, err := s.provider.GenerateStudyPack(ctx, llm.GenerateRequest{
		Text:        in.Text,
		Files:       in.Files,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		log.Printf("❌ Lernpaket fehlgeschlagen nach %v: %v", time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}

	pack.ID = uuid.NewString()
	pack.CreatedAt = s.now().UTC()

	s.activeMu.Lock()
	s.active[userID] = pack
	s.activeMu.Unlock()

	if err := s.store.SaveActivePack(ctx, userID, pack); err != nil {
		log.Printf("⚠️ Lernpaket konnte nicht gespeichert werden: %v", err)
	}

	log.Printf("✅ Lernpaket \"%s\" fertig in %v (%d Karten, %d Fragen, %d Eselsbrücken)",
		pack.Title, time.Since(start).Round(time.Millisecond),
		len(pack.Flashcards), pack.Quiz.QuestionCount(), len(pack.Mnemonics))
	return pack, nil
}

// ActivePack gibt das aktive Lernpaket des Nutzers zurück
func (s *Service) ActivePack(ctx context.Context, userID string) (*models.StudyPack, error) {
	s.activeMu.RLock()
	pack, ok := s.active[userID]
	s.activeMu.RUnlock()
	if ok {
		return pack, nil
	}

	pack, err := s.store.GetActivePack(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActivePack
	}
	if err != nil {
		return nil, fmt.Errorf("aktives lernpaket laden: %w", err)
	}

	s.activeMu.Lock()
	s.active[userID] = pack
	s.activeMu.Unlock()
	return pack, nil
}

// SubmitQuiz bewertet einen Quizversuch und vergibt XP.
// Fehler beim Profil-Update werden nur protokolliert.
func (s *Service) SubmitQuiz(ctx context.Context, userID string, answers models.QuizAnswers) (*QuizOutcome, error) {
	pack, err := s.ActivePack(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := quiz.Grade(pack.Quiz, answers)
	outcome := &QuizOutcome{Result: result, NewBadges: []string{}}
	if result.Total == 0 {
		return outcome, nil
	}

	outcome.XP = gamification.QuizReward(result.Correct, result.Total)
	perfect := result.Correct == result.Total
	log.Printf("🎯 Quiz: %d/%d richtig (%d%%), +%d XP", result.Correct, result.Total, result.Percent(), outcome.XP)

	profile, badges := s.recordActivity(ctx, userID, storage.ProfileUpdate{
		XP:           outcome.XP,
		QuizAttempts: 1,
		QuizScore:    result.Correct,
	}, perfect)
	outcome.Profile = profile
	if badges != nil {
		outcome.NewBadges = badges
	}
	return outcome, nil
}

// CompleteDeck vergibt die Belohnung für ein durchgearbeitetes Kartendeck
func (s *Service) CompleteDeck(ctx context.Context, userID string) (*DeckOutcome, error) {
	pack, err := s.ActivePack(ctx, userID)
	if err != nil {
		return nil, err
	}

	cards := len(pack.Flashcards)
	outcome := &DeckOutcome{Cards: cards, XP: gamification.DeckReward(cards), NewBadges: []string{}}
	if cards == 0 {
		return outcome, nil
	}

	log.Printf("🃏 Deck abgeschlossen: %d Karten, +%d XP", cards, outcome.XP)
	profile, badges := s.recordActivity(ctx, userID, storage.ProfileUpdate{
		XP:                outcome.XP,
		FlashcardsLearned: cards,
	}, false)
	outcome.Profile = profile
	if badges != nil {
		outcome.NewBadges = badges
	}
	return outcome, nil
}

// recordActivity schreibt XP, Serie und neue Badges in einem Update.
// Bei Speicherfehlern wird protokolliert und nil zurückgegeben.
func (s *Service) recordActivity(ctx context.Context, userID string, upd storage.ProfileUpdate, perfect bool) (*models.UserProfile, []string) {
	current, err := s.store.EnsureProfile(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Profil %s konnte nicht geladen werden: %v", userID, err)
		return nil, nil
	}

	now := s.now()
	streak := gamification.NextStreak(current.LastActive, now, current.Streak)
	upd.Streak = &streak
	upd.LastActive = &now

	projected := *current
	projected.XP += upd.XP
	projected.Streak = streak
	projected.Analytics.FlashcardsLearned += upd.FlashcardsLearned
	projected.Analytics.QuizAttempts += upd.QuizAttempts
	projected.Analytics.TotalQuizScore += upd.QuizScore
	upd.AddBadges = gamification.NewBadges(projected, perfect)

	updated, err := s.store.UpdateProfile(ctx, userID, upd)
	if err != nil {
		log.Printf("⚠️ Profil %s konnte nicht aktualisiert werden: %v", userID, err)
		return nil, nil
	}

	for _, b := range upd.AddBadges {
		log.Printf("🏅 Neues Badge für %s: %s", userID, b)
	}
	return updated, upd.AddBadges
}

// Profile gibt das Profil zurück und legt es bei Bedarf an
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.store.EnsureProfile(ctx, userID)
}

// Subscribe liefert Profiländerungen in Echtzeit
func (s *Service) Subscribe(userID string) (<-chan models.UserProfile, func()) {
	return s.store.Subscribe(userID)
}

// Speak erzeugt WAV-Audio für den Text
func (s *Service) Speak(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if !s.speaking.acquire() {
		log.Println("⚠️ Sprachausgabe läuft bereits, ignoriere Anfrage")
		return nil, ErrBusy
	}
	defer s.speaking.release()

	log.Printf("🔊 Sprachausgabe: %d Zeichen", len(text))
	speech, err := s.provider.Synthesize(ctx, text, s.opts.Voice)
	if err != nil {
		return nil, err
	}

	wav, err := audio.FromBase64PCM(speech.MimeType, speech.Data)
	if err != nil {
		return nil, fmt.Errorf("audio umwandeln: %w", err)
	}
	log.Printf("   ✓ %.1f s Audio", audio.Duration(wav))
	return wav, nil
}
