package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LLM-Provider
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort string `json:"server_port"`

	// Pfade
	DatabasePath string `json:"database_path"`

	// LLM-Einstellungen
	Provider      string `json:"provider"` // gemini, ollama
	GeminiAPIKey  string `json:"-"`
	GeminiBaseURL string `json:"gemini_base_url"`
	GenerateModel string `json:"generate_model"`
	SpeechModel   string `json:"speech_model"`
	Voice         string `json:"voice"`
	OllamaURL     string `json:"ollama_url"`
	OllamaModel   string `json:"ollama_model"`

	// Retry-Einstellungen
	MaxAttempts    int `json:"max_attempts"`
	RetryBaseDelay int `json:"retry_base_delay_ms"`

	// Upload-Einstellungen
	MaxUploadMB int `json:"max_upload_mb"`
	MaxFiles    int `json:"max_files"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	return &Config{
		ServerPort:     "8080",
		DatabasePath:   "studypack.db",
		Provider:       ProviderGemini,
		GeminiBaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		GenerateModel:  "gemini-2.5-flash",
		SpeechModel:    "gemini-2.5-flash-preview-tts",
		Voice:          "Kore",
		OllamaURL:      "http://localhost:11434",
		OllamaModel:    "qwen2.5:7b",
		MaxAttempts:    5,
		RetryBaseDelay: 1000,
		MaxUploadMB:    20,
		MaxFiles:       5,
	}
}

// Load lädt die Konfiguration aus einer Datei und überschreibt sie mit Umgebungsvariablen.
// Eine vorhandene .env wird vorher eingelesen.
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env ist optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		cfg.applyEnv()
		return cfg, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		cfg.applyEnv()
		return cfg, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("STUDYPACK_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("STUDYPACK_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ServerPort = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v, err := strconv.Atoi(os.Getenv("STUDYPACK_MAX_ATTEMPTS")); err == nil && v > 0 {
		c.MaxAttempts = v
	}
}

// RetryDelay gibt die Basisverzögerung für Wiederholungen zurück
func (c *Config) RetryDelay() time.Duration {
	if c.RetryBaseDelay <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// MaxUploadBytes gibt das Upload-Limit in Bytes zurück
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Save speichert die Konfiguration in eine Datei
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
