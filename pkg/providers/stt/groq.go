// Package stt adapts HTTP transcription backends to listener.STTProvider.
// Each adapter speaks plain strings and the []float32 PCM spec.md §4.1
// defines, converted to 16-bit PCM via pkg/audio for the multipart/JSON
// upload every backend expects.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/griffincancode/good-listener/pkg/audio"
)

// sampleRate matches spec.md §4.1's fixed capture rate; every adapter here
// assumes utterance PCM arrives at this rate.
const sampleRate = 16000

// GroqSTT calls Groq's OpenAI-compatible Whisper transcription endpoint.
type GroqSTT struct {
	apiKey string
	url    string
	model  string
}

// NewGroqSTT builds a client for model (default "whisper-large-v3-turbo").
func NewGroqSTT(apiKey, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{apiKey: apiKey, url: "https://api.groq.com/openai/v1/audio/transcriptions", model: model}
}

func (s *GroqSTT) Name() string { return "groq-stt" }

// Transcribe implements listener.STTProvider. Groq does not report a
// confidence score, so this always returns 1.0 per spec.md's supplement for
// backends that don't report one.
func (s *GroqSTT) Transcribe(ctx context.Context, pcm []float32, lang string) (string, float64, error) {
	wavData := audio.NewWavBuffer(audio.Float32ToPCM16(pcm), sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", s.model); err != nil {
		return "", 0, err
	}
	if lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return "", 0, err
		}
	}
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", 0, err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return "", 0, err
	}
	if err := writer.Close(); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return "", 0, fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	return result.Text, 1.0, nil
}
