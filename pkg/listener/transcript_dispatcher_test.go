package listener

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTranscriptDispatcherDetectsQuestionsFromOtherParty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQuestionLength = 5
	cfg.MinWordCountForMem = 100 // keep memory persistence out of this test

	var mu sync.Mutex
	var questions []string
	onQuestion := func(q, source string) {
		mu.Lock()
		questions = append(questions, q)
		mu.Unlock()
	}

	d := NewTranscriptDispatcher(cfg, nil, &fakeMemory{}, onQuestion, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()
	d.SetAutoAnswer(true)

	d.Submit("what time is the meeting today", "system")
	d.Submit("what time is the meeting today", "mic") // own voice, should not trigger

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(questions) == 1
	})
}

func TestTranscriptDispatcherRecordingPersistsLongEnoughTranscripts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWordCountForMem = 2
	cfg.AutoAnswerEnabled = false

	mem := &fakeMemory{}
	d := NewTranscriptDispatcher(cfg, nil, mem, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()
	d.SetRecording(true)

	d.Submit("hi", "mic")                    // below MinWordCountForMem, skipped
	d.Submit("this has enough words", "mic") // persisted

	waitFor(t, func() bool {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		return len(mem.added) == 1
	})

	mem.mu.Lock()
	defer mem.mu.Unlock()
	if mem.added[0] != "MIC: this has enough words" {
		t.Errorf("expected the long transcript to be persisted with its source tag embedded, got %+v", mem.added)
	}
}

func TestTranscriptDispatcherBroadcastsQuestionDetectedRegardlessOfAutoAnswer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQuestionLength = 5
	cfg.MinWordCountForMem = 100

	var mu sync.Mutex
	var frames []Frame
	broadcast := func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	}

	d := NewTranscriptDispatcher(cfg, nil, &fakeMemory{}, nil, broadcast)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()
	d.SetAutoAnswer(false) // detection must fire independent of the auto-answer toggle

	d.Submit("what time is the meeting today", "system")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range frames {
			if f.Type == EventQuestionDetected {
				return true
			}
		}
		return false
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before deadline")
	}
}
