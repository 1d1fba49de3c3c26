package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroqSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		resp := struct {
			Text string `json:"text"`
		}{
			Text: "groq transcription",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &GroqSTT{apiKey: "test-key", url: server.URL, model: "whisper-large-v3-turbo"}

	text, confidence, err := s.Transcribe(context.Background(), make([]float32, 512), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "groq transcription" {
		t.Errorf("expected 'groq transcription', got '%s'", text)
	}
	if confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", confidence)
	}
	if s.Name() != "groq-stt" {
		t.Errorf("expected groq-stt, got %s", s.Name())
	}
}

func TestGroqSTTUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := &GroqSTT{apiKey: "wrong-key", url: server.URL, model: "whisper-large-v3-turbo"}
	if _, _, err := s.Transcribe(context.Background(), make([]float32, 512), "en"); err == nil {
		t.Fatal("expected an error for unauthorized response")
	}
}
