package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"studypack/internal/config"
	"studypack/internal/llm"
	"studypack/internal/models"
	"studypack/internal/render"
	"studypack/internal/studypack"
)

// DefaultUserID wird verwendet, wenn kein X-User-ID-Header gesetzt ist
const DefaultUserID = "local"

const formOverhead = 1 << 20

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	service  *studypack.Service
	llm      llm.Provider
	config   *config.Config
	upgrader websocket.Upgrader
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(service *studypack.Service, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		llm:     service.Provider(),
		config:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// serviceError bildet Fehler des Service auf HTTP-Statuscodes ab
func serviceError(w http.ResponseWriter, err error) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, studypack.ErrEmptyInput),
		errors.Is(err, studypack.ErrEmptyText),
		errors.Is(err, studypack.ErrUnsupportedFile),
		errors.Is(err, studypack.ErrTooManyFiles):
		errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, studypack.ErrFileTooLarge):
		errorResponse(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, studypack.ErrBusy):
		errorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, studypack.ErrNoActivePack):
		errorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, llm.ErrSpeechUnsupported):
		errorResponse(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, llm.ErrMissingAPIKey):
		errorResponse(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, llm.ErrMalformedResponse), errors.As(err, &apiErr):
		errorResponse(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		errorResponse(w, "Zeitüberschreitung bei der LLM-Anfrage", http.StatusGatewayTimeout)
	default:
		log.Printf("❌ Interner Fehler: %v", err)
		errorResponse(w, "Interner Fehler", http.StatusInternalServerError)
	}
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("user")); id != "" {
		return id
	}
	return DefaultUserID
}

// === System Endpoints ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	llmAvailable := h.llm.IsAvailable(ctx)

	jsonResponse(w, map[string]interface{}{
		"status":        "ok",
		"llm_available": llmAvailable,
		"llm_provider":  h.llm.GetName(),
		"generating":    h.service.Generating(),
		"speaking":      h.service.Speaking(),
		"timestamp":     time.Now(),
	}, http.StatusOK)
}

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	models, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Konnte Modelle nicht abrufen: %v", err), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"models":        models,
		"current_model": h.llm.GetCurrentModel(),
	}, http.StatusOK)
}

// SetModel ändert das aktive LLM-Modell
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	if req.Model == "" {
		errorResponse(w, "Kein Modell angegeben", http.StatusBadRequest)
		return
	}

	// Prüfe ob das Modell existiert
	ctx := r.Context()
	models, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, "Konnte Modelle nicht abrufen", http.StatusServiceUnavailable)
		return
	}

	found := false
	for _, m := range models {
		if m.Name == req.Model {
			found = true
			break
		}
	}

	if !found {
		errorResponse(w, fmt.Sprintf("Modell '%s' nicht gefunden", req.Model), http.StatusBadRequest)
		return
	}

	// Setze das neue Modell
	h.llm.SetModel(req.Model)
	if h.config.Provider == config.ProviderOllama {
		h.config.OllamaModel = req.Model
	} else {
		h.config.GenerateModel = req.Model
	}

	jsonResponse(w, map[string]interface{}{
		"message":       "Modell geändert",
		"current_model": req.Model,
	}, http.StatusOK)
}

// === Lernpaket Endpoints ===

// CreatePack erzeugt ein Lernpaket aus multipart (text, files) oder JSON ({text, files})
func (h *Handler) CreatePack(w http.ResponseWriter, r *http.Request) {
	// Base64 vergrößert die Daten um ein Drittel, dazu Formular-Overhead
	limit := h.config.MaxUploadBytes()*4/3 + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	in, err := h.readInput(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(w, "Upload zu groß", http.StatusRequestEntityTooLarge)
			return
		}
		errorResponse(w, fmt.Sprintf("Ungültige Anfrage: %v", err), http.StatusBadRequest)
		return
	}

	pack, err := h.service.Generate(r.Context(), userID(r), in)
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, pack, http.StatusCreated)
}

func (h *Handler) readInput(r *http.Request) (studypack.Input, error) {
	var in studypack.Input

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, err
		}
		return in, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return in, err
	}
	in.Text = r.FormValue("text")

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"]...)
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			return in, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		in.Files = append(in.Files, f)
	}
	return in, nil
}

func readUpload(fh *multipart.FileHeader) (models.UploadedFile, error) {
	file, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.UploadedFile{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return models.UploadedFile{
		Name:     fh.Filename,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (h *Handler) GetActivePack(w http.ResponseWriter, r *http.Request) {
	pack, err := h.service.ActivePack(r.Context(), userID(r))
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, pack, http.StatusOK)
}

// GetView rendert einen Reiter des aktiven Lernpakets als Markdown
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	tab, err := render.ParseTab(mux.Vars(r)["tab"])
	if err != nil {
		errorResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	pack, err := h.service.ActivePack(r.Context(), userID(r))
	if err != nil {
		serviceError(w, err)
		return
	}

	view, err := render.View(pack, tab, nil)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, view)
}

// SubmitQuiz bewertet einen Versuch. Die Punktzahl wird nie vom Client übernommen.
func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var answers models.QuizAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	uid := userID(r)
	outcome, err := h.service.SubmitQuiz(ctx, uid, answers)
	if err != nil {
		serviceError(w, err)
		return
	}

	var view string
	if pack, err := h.service.ActivePack(ctx, uid); err == nil {
		view = render.Quiz(pack.Quiz, &outcome.Result)
	}

	jsonResponse(w, struct {
		*studypack.QuizOutcome
		Percent int    `json:"percent"`
		View    string `json:"view,omitempty"`
	}{outcome, outcome.Result.Percent(), view}, http.StatusOK)
}

func (h *Handler) CompleteDeck(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.CompleteDeck(r.Context(), userID(r))
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, outcome, http.StatusOK)
}

// === Sprachausgabe ===

func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	wav, err := h.service.Speak(r.Context(), req.Text)
	if err != nil {
		serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(len(wav)))
	w.WriteHeader(http.StatusOK)
	w.Write(wav)
}

// === Profil Endpoints ===

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), userID(r))
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, profile, http.StatusOK)
}

// SubscribeProfile schickt per WebSocket den aktuellen Stand und danach jede Änderung
func (h *Handler) SubscribeProfile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	// Vor dem Lesen abonnieren, damit keine Änderung verloren geht
	updates, cancel := h.service.Subscribe(uid)
	defer cancel()

	profile, err := h.service.Profile(r.Context(), uid)
	if err != nil {
		serviceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log.Printf("🔌 Profil-Abo für %s geöffnet", uid)
	defer log.Printf("🔌 Profil-Abo für %s geschlossen", uid)

	if err := conn.WriteJSON(profile); err != nil {
		return
	}

	// Der Client sendet nichts; Lesen erkennt nur das Schließen
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server beendet"))
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
