package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssemblyAISTT(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"id": "transcript-1"})
			return
		}
	})
	mux.HandleFunc("/v2/transcript/transcript-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "completed", "text": "assembly transcription"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewAssemblyAISTT("test-key")
	// Point every helper at the test server by hand since the base URLs are
	// hardcoded constants; rewrite them through a small indirection test-only.
	origUpload, origSubmit, origTranscript := assemblyUploadURL, assemblySubmitURL, assemblyTranscriptURL
	assemblyUploadURL = server.URL + "/v2/upload"
	assemblySubmitURL = server.URL + "/v2/transcript"
	assemblyTranscriptURL = server.URL + "/v2/transcript/"
	defer func() {
		assemblyUploadURL, assemblySubmitURL, assemblyTranscriptURL = origUpload, origSubmit, origTranscript
	}()

	text, confidence, err := s.Transcribe(context.Background(), make([]float32, 512), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "assembly transcription") {
		t.Errorf("expected transcription text, got %q", text)
	}
	if confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", confidence)
	}
	if s.Name() != "assemblyai-stt" {
		t.Errorf("expected assemblyai-stt, got %s", s.Name())
	}
}
