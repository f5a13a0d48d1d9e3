package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	// API-Version
	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/models", h.GetModels).Methods("GET")
	api.HandleFunc("/models", h.SetModel).Methods("POST")

	// Lernpakete
	api.HandleFunc("/packs", h.CreatePack).Methods("POST")
	api.HandleFunc("/packs/active", h.GetActivePack).Methods("GET")
	api.HandleFunc("/packs/active/view/{tab}", h.GetView).Methods("GET")
	api.HandleFunc("/packs/active/quiz", h.SubmitQuiz).Methods("POST")
	api.HandleFunc("/packs/active/flashcards/complete", h.CompleteDeck).Methods("POST")

	// Sprachausgabe
	api.HandleFunc("/speech", h.Speak).Methods("POST")

	// Profil
	api.HandleFunc("/profile", h.GetProfile).Methods("GET")
	api.HandleFunc("/profile/subscribe", h.SubscribeProfile).Methods("GET")

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-User-ID"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
