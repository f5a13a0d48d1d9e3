package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studypack/internal/api"
	"studypack/internal/config"
	"studypack/internal/llm"
	"studypack/internal/pdf"
	"studypack/internal/storage"
	"studypack/internal/studypack"
)

// PDF-Text für Ollama wird auf diese Länge gekürzt
const maxPDFRunes = 12000

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("")

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🎓 STUDY-PACK-GENERATOR - Start")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Kommandozeilen-Flags
	configPath := flag.String("config", "config.json", "Pfad zur Konfigurationsdatei")
	port := flag.String("port", "", "Server-Port (überschreibt Konfiguration)")
	flag.Parse()

	// Konfiguration laden
	log.Println("📋 Lade Konfiguration...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("⚠️  Konnte Konfigurationsdatei nicht laden, verwende Standardwerte: %v", err)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}
	log.Printf("   ✓ Konfiguration geladen (Provider: %s)", cfg.Provider)

	// Storage initialisieren
	log.Println("💾 Initialisiere Datenbank...")
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Fehler beim Initialisieren der Datenbank: %v", err)
	}
	defer store.Close()
	log.Printf("   ✓ Datenbank: %s", cfg.DatabasePath)

	// LLM-Provider initialisieren
	log.Println("🤖 Initialisiere LLM-Provider...")
	retry := llm.RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryDelay()}
	log.Printf("   ✓ Wiederholungen: %d Versuche, Basis %v", retry.MaxAttempts, retry.BaseDelay)

	var provider llm.Provider
	switch cfg.Provider {
	case config.ProviderOllama:
		provider = llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, retry, pdf.PromptText(maxPDFRunes))
	default:
		if cfg.GeminiAPIKey == "" {
			log.Println("   ⚠️  GEMINI_API_KEY fehlt, Anfragen werden fehlschlagen")
		}
		provider = llm.NewGeminiProvider(llm.GeminiOptions{
			BaseURL:     cfg.GeminiBaseURL,
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GenerateModel,
			SpeechModel: cfg.SpeechModel,
			Voice:       cfg.Voice,
			Retry:       retry,
		})
	}

	// Prüfe LLM-Verbindung
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if provider.IsAvailable(ctx) {
		log.Printf("   ✓ %s erreichbar", provider.GetName())
	} else {
		log.Printf("   ⚠️  %s NICHT erreichbar", provider.GetName())
	}
	cancel()
	log.Printf("   ✓ Modell: %s", provider.GetCurrentModel())

	service := studypack.NewService(provider, store, studypack.Options{
		MaxFiles:       cfg.MaxFiles,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Voice:          cfg.Voice,
	})

	// API-Handler und Router erstellen
	handler := api.NewHandler(service, cfg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// Graceful Shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("")
		log.Println("⏹️  Server wird heruntergefahren...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Println("")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✅ Server läuft auf: http://localhost:%s/api/v1", cfg.ServerPort)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("💡 Drücke Strg+C zum Beenden")
	log.Println("")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server-Fehler: %v", err)
	}
}
