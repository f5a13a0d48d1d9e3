package audio

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleRate(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		expected int
	}{
		{name: "gemini tts", mimeType: "audio/L16;codec=pcm;rate=24000", expected: 24000},
		{name: "spaces", mimeType: "audio/L16; rate=16000", expected: 16000},
		{name: "no rate", mimeType: "audio/L16;codec=pcm", expected: DefaultSampleRate},
		{name: "garbage rate", mimeType: "audio/L16;rate=abc", expected: DefaultSampleRate},
		{name: "empty", mimeType: "", expected: DefaultSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSampleRate(tt.mimeType))
		})
	}
}

func TestPCMToWAVHeader(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x10, 0x00}
	wav, err := PCMToWAV(pcm, 24000)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestPCMToWAVRejectsOddLength(t *testing.T) {
	_, err := PCMToWAV([]byte{1, 2, 3}, 24000)
	assert.ErrorIs(t, err, ErrOddPCMLength)
}

func TestFromBase64PCM(t *testing.T) {
	pcm := make([]byte, 48000) // 1 Sekunde bei 24 kHz
	wav, err := FromBase64PCM("audio/L16;codec=pcm;rate=24000", base64.StdEncoding.EncodeToString(pcm))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, Duration(wav), 0.0001)

	_, err = FromBase64PCM("audio/L16", "%%%")
	assert.Error(t, err)
}

func TestDurationOfShortBuffer(t *testing.T) {
	assert.Equal(t, 0.0, Duration([]byte("RIFF")))
}
