package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"studypack/internal/models"
)

// GeminiProvider implementiert den Provider für die Gemini-API (generateContent)
type GeminiProvider struct {
	baseURL     string
	apiKey      string
	mu          sync.RWMutex
	model       string
	speechModel string
	voice       string
	client      *http.Client
	retry       RetryPolicy
}

// GeminiOptions konfiguriert den Gemini-Provider
type GeminiOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	SpeechModel string
	Voice       string
	Retry       RetryPolicy
}

// NewGeminiProvider erstellt einen neuen Gemini-Provider
func NewGeminiProvider(opts GeminiOptions) *GeminiProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = "gemini-2.5-flash-preview-tts"
	}
	if opts.Voice == "" {
		opts.Voice = "Kore"
	}

	return &GeminiProvider{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		speechModel: opts.SpeechModel,
		voice:       opts.Voice,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		retry: opts.Retry,
	}
}

// Request-/Response-Typen der REST-API

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type generationConfig struct {
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	Temperature        *float64      `json:"temperature,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (g *GeminiProvider) GetName() string {
	return "Gemini"
}

// SetModel ändert das Modell für die Generierung
func (g *GeminiProvider) SetModel(model string) {
	if model == "" {
		return
	}
	g.mu.Lock()
	g.model = model
	g.mu.Unlock()
}

// GetCurrentModel gibt das aktuelle Modell zurück
func (g *GeminiProvider) GetCurrentModel() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model
}

func (g *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if g.apiKey == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/models?pageSize=1", nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (g *GeminiProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: resp.Status}
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	infos := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		infos = append(infos, ModelInfo{Name: strings.TrimPrefix(m.Name, "models/")})
	}
	return infos, nil
}

// GenerateStudyPack schickt Text und Dateien (inline, base64) an generateContent
func (g *GeminiProvider) GenerateStudyPack(ctx context.Context, in GenerateRequest) (*models.StudyPack, error) {
	parts := []geminiPart{{Text: UserPrompt(in.Text, len(in.Files))}}
	for _, f := range in.Files {
		parts = append(parts, geminiPart{InlineData: &geminiBlob{MimeType: f.MimeType, Data: f.Data}})
	}

	cfg := &generationConfig{ResponseMimeType: "application/json"}
	if in.Temperature > 0 {
		t := in.Temperature
		cfg.Temperature = &t
	}

	body := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemInstruction()}}},
		GenerationConfig:  cfg,
	}

	model := g.GetCurrentModel()
	log.Printf("   [Gemini] Modell: %s, %d Teile", model, len(parts))

	text, _, err := g.generate(ctx, model, body)
	if err != nil {
		return nil, err
	}

	pack, err := ParseStudyPack(text)
	if err != nil {
		log.Printf("   [Gemini] ❌ Lernpaket nicht lesbar: %v", err)
		return nil, err
	}

	log.Printf("   [Gemini] ✓ Lernpaket erhalten: %s", pack.Title)
	return pack, nil
}

// Synthesize ruft das TTS-Modell auf und gibt base64-PCM zurück
func (g *GeminiProvider) Synthesize(ctx context.Context, text string, voice string) (*Speech, error) {
	if voice == "" {
		voice = g.voice
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice}},
			},
		},
	}

	log.Printf("   [Gemini] TTS: %d Zeichen, Stimme %s", len(text), voice)

	_, blob, err := g.generate(ctx, g.speechModel, body)
	if err != nil {
		return nil, err
	}
	if blob == nil || blob.Data == "" {
		return nil, fmt.Errorf("%w: keine Audiodaten", ErrMalformedResponse)
	}

	return &Speech{MimeType: blob.MimeType, Data: blob.Data}, nil
}

// generate führt generateContent aus und liefert Text und erste Inline-Daten
func (g *GeminiProvider) generate(ctx context.Context, model string, body geminiRequest) (string, *geminiBlob, error) {
	if g.apiKey == "" {
		return "", nil, ErrMissingAPIKey
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	start := time.Now()

	resp, err := doWithRetry(ctx, g.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)
		return req, nil
	}, g.retry, "Gemini")
	if err != nil {
		log.Printf("   [Gemini] ❌ Anfrage gescheitert nach %v: %v", time.Since(start), err)
		return "", nil, fmt.Errorf("gemini-anfrage fehlgeschlagen: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("   [Gemini] Antwort erhalten nach %v", time.Since(start))

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", nil, fmt.Errorf("%w: anfrage blockiert (%s)", ErrMalformedResponse, result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", nil, fmt.Errorf("%w: keine Kandidaten", ErrMalformedResponse)
	}

	var text strings.Builder
	var blob *geminiBlob
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
		if blob == nil && part.InlineData != nil {
			blob = part.InlineData
		}
	}

	return text.String(), blob, nil
}
