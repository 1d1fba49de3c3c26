package vad

import "testing"

func TestRMSVADSpeechProbability(t *testing.T) {
	v := NewRMSVAD(0.1)

	silence := make([]float32, 512)
	prob, err := v.SpeechProbability(silence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prob != 0 {
		t.Errorf("expected 0 probability for silence, got %f", prob)
	}

	loud := make([]float32, 512)
	for i := range loud {
		loud[i] = 1.0
	}
	prob, err = v.SpeechProbability(loud)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prob != 1 {
		t.Errorf("expected probability clamped to 1, got %f", prob)
	}
}

func TestRMSVADEmptyChunk(t *testing.T) {
	v := NewRMSVAD(0.1)
	prob, err := v.SpeechProbability(nil)
	if err != nil || prob != 0 {
		t.Errorf("expected (0, nil) for an empty chunk, got (%f, %v)", prob, err)
	}
}

func TestNewRMSVADDefaultsCeiling(t *testing.T) {
	v := NewRMSVAD(0)
	if v.ceiling != 0.1 {
		t.Errorf("expected default ceiling 0.1, got %f", v.ceiling)
	}
}

func TestRMSVADName(t *testing.T) {
	if NewRMSVAD(0.1).Name() != "rms-vad" {
		t.Error("expected Name() to return 'rms-vad'")
	}
}
