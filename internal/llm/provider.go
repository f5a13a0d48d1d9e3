package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"studypack/internal/models"
)

var (
	// ErrMissingAPIKey: ohne API-Key ist keine Anfrage möglich
	ErrMissingAPIKey = errors.New("kein API-Key konfiguriert")
	// ErrMalformedResponse: Antwort ließ sich nicht als Lernpaket lesen
	ErrMalformedResponse = errors.New("ungültige Antwort vom LLM")
	// ErrSpeechUnsupported: Provider kann keine Sprache erzeugen
	ErrSpeechUnsupported = errors.New("sprachausgabe wird von diesem Provider nicht unterstützt")
)

// ollamaSemaphore limitiert gleichzeitige Ollama-Anfragen (verhindert Speicherüberlauf)
var ollamaSemaphore = make(chan struct{}, 1) // Nur 1 gleichzeitige Anfrage

func acquireOllama(ctx context.Context) error {
	select {
	case ollamaSemaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func releaseOllama() {
	<-ollamaSemaphore
}

// Provider definiert das Interface für LLM-Backends
type Provider interface {
	// GenerateStudyPack erzeugt ein Lernpaket aus Text und Dateien
	GenerateStudyPack(ctx context.Context, req GenerateRequest) (*models.StudyPack, error)

	// Synthesize erzeugt Sprache (base64-PCM) aus Text
	Synthesize(ctx context.Context, text string, voice string) (*Speech, error)

	// GetModels gibt verfügbare Modelle zurück
	GetModels(ctx context.Context) ([]ModelInfo, error)

	// IsAvailable prüft, ob das Backend erreichbar ist
	IsAvailable(ctx context.Context) bool

	// GetName gibt den Namen des Providers zurück
	GetName() string

	// SetModel ändert das verwendete Modell
	SetModel(model string)

	// GetCurrentModel gibt das aktuelle Modell zurück
	GetCurrentModel() string
}

// GenerateRequest ist eine Generierungsanfrage
type GenerateRequest struct {
	Text        string
	Files       []models.UploadedFile
	Temperature float64
}

// Speech ist die Antwort der Sprachsynthese
type Speech struct {
	MimeType string `json:"mime_type"` // z.B. audio/L16;codec=pcm;rate=24000
	Data     string `json:"data"`      // base64
}

// ModelInfo enthält Informationen über ein Modell
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Size       int64     `json:"size,omitempty"`
}

// OllamaProvider implementiert den Provider für eine lokale Ollama-Instanz.
// PDFs werden vorher in Text umgewandelt, Bilder gehen als images[] mit.
type OllamaProvider struct {
	baseURL      string
	mu           sync.RWMutex
	defaultModel string
	client       *http.Client
	retry        RetryPolicy
	pdfText      func(data []byte) (string, error)
}

// NewOllamaProvider erstellt einen neuen Ollama-Provider
func NewOllamaProvider(baseURL, defaultModel string, retry RetryPolicy, pdfText func([]byte) (string, error)) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if defaultModel == "" {
		defaultModel = "qwen2.5:7b"
	}

	return &OllamaProvider{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		client: &http.Client{
			Timeout: 15 * time.Minute, // Erhöht für große Prompts
		},
		retry:   retry,
		pdfText: pdfText,
	}
}

// SetModel ändert das Standard-Modell
func (o *OllamaProvider) SetModel(model string) {
	if model == "" {
		return
	}
	o.mu.Lock()
	o.defaultModel = model
	o.mu.Unlock()
}

// GetCurrentModel gibt das aktuelle Modell zurück
func (o *OllamaProvider) GetCurrentModel() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.defaultModel
}

func (o *OllamaProvider) GetName() string {
	return "Ollama"
}

func (o *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (o *OllamaProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Models []struct {
			Name       string    `json:"name"`
			ModifiedAt time.Time `json:"modified_at"`
			Size       int64     `json:"size"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var infos []ModelInfo
	for _, m := range result.Models {
		infos = append(infos, ModelInfo{
			Name:       m.Name,
			ModifiedAt: m.ModifiedAt,
			Size:       m.Size,
		})
	}

	return infos, nil
}

// GenerateStudyPack erzeugt ein Lernpaket über /api/generate im JSON-Modus
func (o *OllamaProvider) GenerateStudyPack(ctx context.Context, in GenerateRequest) (*models.StudyPack, error) {
	// Semaphore: Nur eine Anfrage gleichzeitig an Ollama
	if err := acquireOllama(ctx); err != nil {
		return nil, err
	}
	defer releaseOllama()

	prompt, images, err := o.buildPrompt(in)
	if err != nil {
		return nil, err
	}

	model := o.GetCurrentModel()
	log.Printf("   [Ollama] Sende Anfrage an %s/api/generate", o.baseURL)
	log.Printf("   [Ollama] Modell: %s", model)
	log.Printf("   [Ollama] Prompt-Länge: %d Zeichen, %d Bilder", len(prompt), len(images))

	reqBody := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"system": SystemInstruction(),
		"format": "json",
		"stream": false,
	}
	if len(images) > 0 {
		reqBody["images"] = images
	}
	if in.Temperature > 0 {
		reqBody["options"] = map[string]interface{}{
			"temperature": in.Temperature,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("   [Ollama] ❌ JSON-Marshal Fehler: %v", err)
		return nil, err
	}

	log.Println("   [Ollama] Warte auf Antwort... (kann dauern bei großen Prompts)")
	start := time.Now()

	resp, err := doWithRetry(ctx, o.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, o.retry, "Ollama")
	if err != nil {
		log.Printf("   [Ollama] ❌ Anfrage gescheitert nach %v: %v", time.Since(start), err)
		return nil, fmt.Errorf("ollama-anfrage fehlgeschlagen: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("   [Ollama] Antwort erhalten nach %v (Status: %d)", time.Since(start), resp.StatusCode)

	var result struct {
		Response string `json:"response"`
		Model    string `json:"model"`
		Done     bool   `json:"done"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("   [Ollama] ❌ JSON-Decode Fehler: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	pack, err := ParseStudyPack(result.Response)
	if err != nil {
		log.Printf("   [Ollama] ❌ Lernpaket nicht lesbar: %v", err)
		return nil, err
	}

	log.Printf("   [Ollama] ✓ Erfolgreich! Lernpaket: %s", pack.Title)
	return pack, nil
}

// buildPrompt setzt Text und PDF-Inhalte zusammen und sammelt Bilder
func (o *OllamaProvider) buildPrompt(in GenerateRequest) (string, []string, error) {
	var prompt strings.Builder
	prompt.WriteString(UserPrompt(in.Text, len(in.Files)))

	var images []string
	for _, f := range in.Files {
		switch {
		case strings.HasPrefix(f.MimeType, "image/"):
			images = append(images, f.Data)
		case f.MimeType == "application/pdf":
			if o.pdfText == nil {
				return "", nil, fmt.Errorf("pdf '%s' kann nicht gelesen werden", f.Name)
			}
			raw, err := decodeFileData(f)
			if err != nil {
				return "", nil, err
			}
			text, err := o.pdfText(raw)
			if err != nil {
				return "", nil, fmt.Errorf("pdf '%s' konnte nicht gelesen werden: %w", f.Name, err)
			}
			prompt.WriteString(fmt.Sprintf("\n\n=== Dokument: %s ===\n", f.Name))
			prompt.WriteString(limitContent(text, maxDocumentChars))
		default:
			return "", nil, fmt.Errorf("dateityp %s wird nicht unterstützt", f.MimeType)
		}
	}

	return prompt.String(), images, nil
}

// Synthesize wird von Ollama nicht angeboten
func (o *OllamaProvider) Synthesize(ctx context.Context, text string, voice string) (*Speech, error) {
	return nil, ErrSpeechUnsupported
}
