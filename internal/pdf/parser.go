package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document ist der extrahierte Inhalt einer PDF
type Document struct {
	Name      string
	Content   string
	PageCount int
}

// Parse extrahiert den Text einer hochgeladenen PDF
func Parse(data []byte, filename string) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der PDF: %w", err)
	}

	var content strings.Builder
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		content.WriteString(fmt.Sprintf("\n--- Seite %d ---\n", pageNum))
		content.WriteString(text)
	}

	return &Document{
		Name:      filename,
		Content:   content.String(),
		PageCount: totalPages,
	}, nil
}

// ExtractText gibt nur den Text zurück (für Provider ohne PDF-Eingabe)
func ExtractText(data []byte) (string, error) {
	doc, err := Parse(data, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return "", fmt.Errorf("pdf enthält keinen extrahierbaren Text (%d Seiten)", doc.PageCount)
	}
	return doc.Content, nil
}

// IsPDF prüft die Signatur am Dateianfang
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ExtractChunks teilt den Text in Chunks für die LLM-Verarbeitung
func ExtractChunks(content string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
	}
	if overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	runes := []rune(content)
	length := len(runes)

	for i := 0; i < length; i += chunkSize - overlap {
		end := i + chunkSize
		if end > length {
			end = length
		}

		chunks = append(chunks, string(runes[i:end]))

		if end >= length {
			break
		}
	}

	return chunks
}

// PromptText liefert eine Extraktionsfunktion, die den Text auf maxRunes Zeichen begrenzt
func PromptText(maxRunes int) func(data []byte) (string, error) {
	return func(data []byte) (string, error) {
		if !IsPDF(data) {
			return "", fmt.Errorf("keine gültige PDF-Datei")
		}
		text, err := ExtractText(data)
		if err != nil {
			return "", err
		}
		chunks := ExtractChunks(text, maxRunes, 0)
		if len(chunks) > 1 {
			return chunks[0] + "\n[... gekürzt ...]", nil
		}
		return text, nil
	}
}
