package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypack/internal/models"
)

func TestOllamaGenerateStudyPack(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{"response": packJSON, "model": "m", "done": true})
	}))
	defer server.Close()

	pdfText := func(data []byte) (string, error) {
		assert.Equal(t, "%PDF", string(data))
		return "Inhalt der PDF", nil
	}
	o := NewOllamaProvider(server.URL, "m", fastRetry(), pdfText)

	pack, err := o.GenerateStudyPack(context.Background(), GenerateRequest{
		Text: "Notizen",
		Files: []models.UploadedFile{
			{Name: "bild.png", MimeType: "image/png", Data: "aGFsbG8="},
			{Name: "skript.pdf", MimeType: "application/pdf", Data: base64.StdEncoding.EncodeToString([]byte("%PDF"))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Zellbiologie", pack.Title)

	assert.Equal(t, "json", captured["format"])
	assert.Equal(t, []interface{}{"aGFsbG8="}, captured["images"])
	assert.Contains(t, captured["prompt"], "Inhalt der PDF")
	assert.Contains(t, captured["prompt"], "skript.pdf")
	assert.Contains(t, captured["system"], "mind_map")
}

func TestOllamaRejectsUnsupportedFiles(t *testing.T) {
	o := NewOllamaProvider("http://127.0.0.1:1", "m", fastRetry(), nil)
	_, err := o.GenerateStudyPack(context.Background(), GenerateRequest{
		Files: []models.UploadedFile{{Name: "a.zip", MimeType: "application/zip", Data: ""}},
	})
	assert.Error(t, err)
}

func TestOllamaHasNoSpeech(t *testing.T) {
	o := NewOllamaProvider("", "", fastRetry(), nil)
	_, err := o.Synthesize(context.Background(), "Hallo", "")
	assert.ErrorIs(t, err, ErrSpeechUnsupported)
	assert.Equal(t, "qwen2.5:7b", o.GetCurrentModel())
	assert.Equal(t, "Ollama", o.GetName())
}

func TestParseStudyPack(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain json", input: packJSON},
		{name: "fenced json", input: "Hier:\n```json\n" + packJSON + "\n```"},
		{name: "no json", input: "keine Ahnung", wantErr: true},
		{name: "broken json", input: `{"title": "x", "summary": }`, wantErr: true},
		{name: "empty object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pack, err := ParseStudyPack(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Zellbiologie", pack.Title)
		})
	}
}

func TestParseStudyPackNormalizes(t *testing.T) {
	pack, err := ParseStudyPack(`{"title": "Nur Titel", "flashcards": [{"front": "a", "back": "b"}],
		"quiz": {"fill_blank": [{"sentence": "___", "answer": "  "}]}}`)
	require.NoError(t, err)

	assert.Equal(t, "Nur Titel", pack.MindMap.Label)
	assert.NotNil(t, pack.Mnemonics)
	assert.NotNil(t, pack.Summary.KeyPoints)
	assert.Empty(t, pack.Quiz.FillBlank)
	assert.NotNil(t, pack.Quiz.TrueFalse)
}

func TestStudyPackSchema(t *testing.T) {
	schema := StudyPackSchema()
	require.NotEmpty(t, schema)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(schema), &decoded))
	assert.Contains(t, schema, "multiple_choice")
	assert.Contains(t, schema, "correct_index")
	assert.NotContains(t, schema, "created_at")
}

func TestUserPrompt(t *testing.T) {
	assert.Contains(t, UserPrompt("Text", 0), "Text")
	assert.Contains(t, UserPrompt("", 2), "attached files")
	assert.Contains(t, UserPrompt("Text", 1), "attached files")
}
