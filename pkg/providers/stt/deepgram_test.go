package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepgramSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		type alt struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		}
		resp := struct {
			Results struct {
				Channels []struct {
					Alternatives []alt `json:"alternatives"`
				} `json:"channels"`
			} `json:"results"`
		}{}
		resp.Results.Channels = []struct {
			Alternatives []alt `json:"alternatives"`
		}{{Alternatives: []alt{{Transcript: "deepgram text", Confidence: 0.87}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &DeepgramSTT{apiKey: "test-key", url: server.URL}

	text, confidence, err := s.Transcribe(context.Background(), make([]float32, 512), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "deepgram text" {
		t.Errorf("expected 'deepgram text', got '%s'", text)
	}
	if confidence != 0.87 {
		t.Errorf("expected confidence 0.87, got %f", confidence)
	}
	if s.Name() != "deepgram-stt" {
		t.Errorf("expected deepgram-stt, got %s", s.Name())
	}
}

func TestDeepgramSTTEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[]}}`))
	}))
	defer server.Close()

	s := &DeepgramSTT{apiKey: "test-key", url: server.URL}
	text, confidence, err := s.Transcribe(context.Background(), make([]float32, 512), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" || confidence != 0 {
		t.Errorf("expected empty result, got text=%q confidence=%f", text, confidence)
	}
}
