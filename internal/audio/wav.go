package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// DefaultSampleRate der Gemini-TTS-Ausgabe
const DefaultSampleRate = 24000

const (
	bitsPerSample = 16
	numChannels   = 1
	headerSize    = 44
)

// ErrOddPCMLength: 16-Bit-PCM muss eine gerade Byteanzahl haben
var ErrOddPCMLength = errors.New("pcm-daten haben ungerade länge")

// ParseSampleRate liest rate=NNNN aus einem MIME-Typ wie audio/L16;codec=pcm;rate=24000
func ParseSampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err == nil {
		if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
			return rate
		}
		return DefaultSampleRate
	}

	// Fallback für nicht standardkonforme Typen
	for _, part := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(key, "rate") {
			if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return DefaultSampleRate
}

// DecodeBase64PCM dekodiert die base64-Audiodaten
func DecodeBase64PCM(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("audiodaten sind kein gültiges base64: %w", err)
	}
	return pcm, nil
}

// PCMToWAV verpackt 16-Bit-Mono-PCM (little endian) in einen WAV-Container
func PCMToWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddPCMLength
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+dataSize))

	// RIFF-Header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt-Chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data-Chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// FromBase64PCM wandelt eine TTS-Antwort (MIME-Typ + base64) in WAV-Bytes um
func FromBase64PCM(mimeType, data string) ([]byte, error) {
	pcm, err := DecodeBase64PCM(data)
	if err != nil {
		return nil, err
	}
	return PCMToWAV(pcm, ParseSampleRate(mimeType))
}

// Duration gibt die Abspieldauer eines WAV-Puffers in Sekunden zurück
func Duration(wav []byte) float64 {
	if len(wav) < headerSize {
		return 0
	}
	byteRate := binary.LittleEndian.Uint32(wav[28:32])
	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if byteRate == 0 {
		return 0
	}
	return float64(dataSize) / float64(byteRate)
}
