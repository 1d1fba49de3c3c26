package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/griffincancode/good-listener/pkg/audio"
)

// Overridable for tests; production code never reassigns these.
var (
	assemblyUploadURL     = "https://api.assemblyai.com/v2/upload"
	assemblySubmitURL     = "https://api.assemblyai.com/v2/transcript"
	assemblyTranscriptURL = "https://api.assemblyai.com/v2/transcript/"
)

// AssemblyAISTT polls AssemblyAI's upload-then-transcribe async API.
type AssemblyAISTT struct {
	apiKey string
}

// NewAssemblyAISTT builds a client.
func NewAssemblyAISTT(apiKey string) *AssemblyAISTT {
	return &AssemblyAISTT{apiKey: apiKey}
}

func (s *AssemblyAISTT) Name() string { return "assemblyai-stt" }

// Transcribe implements listener.STTProvider: upload, submit, poll until
// done. AssemblyAI does not report a per-transcript confidence score in
// this codepath, so this always returns 1.0.
func (s *AssemblyAISTT) Transcribe(ctx context.Context, pcm []float32, lang string) (string, float64, error) {
	uploadURL, err := s.upload(ctx, audio.Float32ToPCM16(pcm))
	if err != nil {
		return "", 0, err
	}

	transcriptID, err := s.submit(ctx, uploadURL, lang)
	if err != nil {
		return "", 0, err
	}

	for {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			text, status, err := s.getTranscript(ctx, transcriptID)
			if err != nil {
				return "", 0, err
			}
			if status == "completed" {
				return text, 1.0, nil
			}
			if status == "error" {
				return "", 0, fmt.Errorf("assemblyai transcription failed")
			}
		}
	}
}

func (s *AssemblyAISTT) upload(ctx context.Context, pcm16 []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, assemblyUploadURL, bytes.NewReader(pcm16))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.UploadURL, nil
}

func (s *AssemblyAISTT) submit(ctx context.Context, uploadURL, lang string) (string, error) {
	payload := map[string]interface{}{"audio_url": uploadURL}
	if lang != "" {
		payload["language_code"] = lang
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, assemblySubmitURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (s *AssemblyAISTT) getTranscript(ctx context.Context, id string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assemblyTranscriptURL+id, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}
	return result.Text, result.Status, nil
}
