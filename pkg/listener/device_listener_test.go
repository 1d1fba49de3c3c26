package listener

import (
	"sync"
	"testing"
	"time"
)

// sequenceVAD reports a fixed probability per call, canned in order; calls
// past the end of the sequence repeat the last value.
type sequenceVAD struct {
	mu     sync.Mutex
	probs  []float64
	calls  int
	resets int
}

func (v *sequenceVAD) SpeechProbability(chunk []float32) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := v.calls
	if idx >= len(v.probs) {
		idx = len(v.probs) - 1
	}
	v.calls++
	return v.probs[idx], nil
}

func (v *sequenceVAD) Name() string { return "sequence-vad" }

func (v *sequenceVAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets++
}

func TestDeviceListenerEmitsUtteranceAfterSilenceRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VADThreshold = 0.5
	cfg.MaxSilenceChunks = 2

	// 16 speaking chunks (8192 samples, over the 0.5s/8000-sample minimum)
	// followed by 2 silent chunks to close the utterance out.
	probs := make([]float64, 0, 18)
	for i := 0; i < 16; i++ {
		probs = append(probs, 0.9)
	}
	probs = append(probs, 0.1, 0.1)
	vad := &sequenceVAD{probs: probs}

	got := make(chan Utterance, 1)
	dl := NewDeviceListener("mic", 16000, vad, cfg, nil,
		func(u Utterance) { got <- u },
		func(source string, err error) { t.Errorf("unexpected VAD error from %s: %v", source, err) },
	)
	dl.Start()
	defer dl.Stop(time.Second)

	samples := make([]float32, 18*512)
	for i := range samples {
		samples[i] = 0.5
	}
	dl.Push(samples)

	select {
	case u := <-got:
		if u.Source != "mic" {
			t.Errorf("expected source 'mic', got %q", u.Source)
		}
		if len(u.PCM) < 8000 {
			t.Errorf("expected at least 8000 samples of captured speech, got %d", len(u.PCM))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for utterance")
	}

	if vad.resets == 0 {
		t.Error("expected VAD Reset to be called once the utterance closed")
	}
}

func TestDownmixAveragesChannels(t *testing.T) {
	stereo := []float32{1.0, -1.0, 0.5, 0.5}
	mono := Downmix(stereo, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono frames, got %d", len(mono))
	}
	if mono[0] != 0 {
		t.Errorf("expected frame 0 to average to 0, got %f", mono[0])
	}
	if mono[1] != 0.5 {
		t.Errorf("expected frame 1 to average to 0.5, got %f", mono[1])
	}
}

func TestDownmixPassthroughForMono(t *testing.T) {
	mono := []float32{0.1, 0.2, 0.3}
	out := Downmix(mono, 1)
	if len(out) != len(mono) {
		t.Fatalf("expected passthrough length %d, got %d", len(mono), len(out))
	}
}
