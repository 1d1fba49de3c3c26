package listener

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLLM struct {
	response string
	tool     *ToolCall
}

func (f *fakeLLM) Name() string { return "fake-llm" }

func (f *fakeLLM) Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(ToolCall) error) error {
	if onToken != nil && f.response != "" {
		if err := onToken(f.response); err != nil {
			return err
		}
	}
	if f.tool != nil && onTool != nil {
		return onTool(*f.tool)
	}
	return nil
}

type fakeMemory struct {
	mu       sync.Mutex
	added    []string
	snippets []string
}

func (m *fakeMemory) Add(ctx context.Context, text, source string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, text)
	return "id", nil
}

func (m *fakeMemory) Query(ctx context.Context, text string, k int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snippets) == 0 {
		return nil, nil
	}
	return m.snippets, nil
}

// capturingLLM records the human prompt it was sent instead of replying.
type capturingLLM struct {
	mu     sync.Mutex
	prompt string
}

func (c *capturingLLM) Name() string { return "capturing-llm" }

func (c *capturingLLM) Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(ToolCall) error) error {
	c.mu.Lock()
	c.prompt = humanPrompt
	c.mu.Unlock()
	return nil
}

func (c *capturingLLM) capturedPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

func TestAutoAnswerControllerFallsBackToNoContextAvailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 0

	llm := &capturingLLM{}
	done := make(chan struct{})
	broadcast := func(f Frame) {
		if f.Type == EventAutoAnswerDone {
			close(done)
		}
	}

	a := NewAutoAnswerController(cfg, nil, llm, &fakeMemory{}, &fakeMemory{}, nil, NewTranscriptRing(30), broadcast, func() int { return 1 })
	a.OnQuestion("anyone there", "system")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for auto_done frame")
	}

	if got := llm.capturedPrompt(); !strings.Contains(got, "No context available.") {
		t.Errorf("expected prompt to fall back to \"No context available.\" with empty transcript and screen, got %q", got)
	}
}

func TestAutoAnswerControllerGroundsPromptWithMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 0

	llm := &capturingLLM{}
	mem := &fakeMemory{snippets: []string{"the deadline is friday"}}
	done := make(chan struct{})
	broadcast := func(f Frame) {
		if f.Type == EventAutoAnswerDone {
			close(done)
		}
	}

	a := NewAutoAnswerController(cfg, nil, llm, mem, mem, nil, NewTranscriptRing(30), broadcast, func() int { return 1 })
	a.OnQuestion("when is it due", "system")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for auto_done frame")
	}

	if got := llm.capturedPrompt(); !strings.Contains(got, "the deadline is friday") {
		t.Errorf("expected prompt to include queried memory snippet, got %q", got)
	}
}

func TestAutoAnswerControllerSkipsSilentlyWithNoSubscribers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 0

	var calls int32
	llm := &countingLLM{calls: &calls}
	a := NewAutoAnswerController(cfg, nil, llm, &fakeMemory{}, &fakeMemory{}, nil, NewTranscriptRing(30), func(Frame) {
		t.Error("no frame should be broadcast when there are no subscribers")
	}, func() int { return 0 })

	a.OnQuestion("is anyone listening", "system")
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no LLM call with zero subscribers, got %d", n)
	}
}

type countingLLM struct {
	calls *int32
}

func (c *countingLLM) Name() string { return "counting-llm" }

func (c *countingLLM) Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(ToolCall) error) error {
	atomic.AddInt32(c.calls, 1)
	return nil
}

func TestAutoAnswerControllerCooldownGatesRapidQuestions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 60

	var mu sync.Mutex
	var starts int
	broadcast := func(f Frame) {
		if f.Type == EventAutoAnswerStart {
			mu.Lock()
			starts++
			mu.Unlock()
		}
	}

	a := NewAutoAnswerController(cfg, nil, &fakeLLM{response: "an answer"}, &fakeMemory{}, &fakeMemory{}, nil, NewTranscriptRing(30), broadcast, func() int { return 1 })

	a.OnQuestion("what is the plan", "system")
	a.OnQuestion("what is the plan again", "system")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := starts
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if starts != 1 {
		t.Errorf("expected exactly 1 auto-answer to fire within the cooldown window, got %d", starts)
	}
}

func TestAutoAnswerControllerHandlesStoreMemoryToolCall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 0

	mem := &fakeMemory{}
	done := make(chan struct{})
	broadcast := func(f Frame) {
		if f.Type == EventAutoAnswerDone {
			close(done)
		}
	}

	a := NewAutoAnswerController(cfg, nil, &fakeLLM{response: "", tool: &ToolCall{Name: "store_memory", Args: map[string]string{"text": "remember this"}}}, mem, mem, nil, NewTranscriptRing(30), broadcast, func() int { return 1 })
	a.OnQuestion("is this important", "system")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for auto_done frame")
	}

	mem.mu.Lock()
	defer mem.mu.Unlock()
	if len(mem.added) != 1 || mem.added[0] != "remember this" {
		t.Errorf("expected store_memory tool call to persist 'remember this', got %+v", mem.added)
	}
}
