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

// OpenAISTT calls OpenAI's /v1/audio/transcriptions endpoint (Whisper).
type OpenAISTT struct {
	apiKey string
	url    string
	model  string
}

// NewOpenAISTT builds a client for model (default "whisper-1").
func NewOpenAISTT(apiKey, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{apiKey: apiKey, url: "https://api.openai.com/v1/audio/transcriptions", model: model}
}

func (s *OpenAISTT) Name() string { return "openai-stt" }

// Transcribe implements listener.STTProvider. OpenAI's Whisper endpoint does
// not report a confidence score, so this always returns 1.0.
func (s *OpenAISTT) Transcribe(ctx context.Context, pcm []float32, lang string) (string, float64, error) {
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
	if _, err := part.Write(wavData); err != nil {
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
		respBody, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("openai stt error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	return result.Text, 1.0, nil
}
