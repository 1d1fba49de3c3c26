package listener

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Supervisor is the top-level runtime (C9): it wires the audio supervisor,
// screen loop, transcript dispatcher, auto-answer controller and subscriber
// hub together and exposes the single entry point embedders use to start,
// stop, and query the system: a thin struct holding every collaborator
// plus the handful of methods that coordinate them.
type Supervisor struct {
	cfg    Config
	logger Logger

	audio      *AudioSupervisor
	screen     *ScreenLoop
	dispatcher *TranscriptDispatcher
	autoAnswer *AutoAnswerController
	hub        *Hub

	llm    LLMProvider
	memory interface {
		MemoryWriter
		MemoryReader
	}

	mu      sync.Mutex
	running bool
}

// SupervisorDeps collects every external collaborator the Supervisor needs at
// construction time, keeping the constructor's parameter list from growing
// unbounded as the system gains providers (spec.md §9's cyclic-reference
// resolution: every dependency flows in, nothing is looked up globally).
type SupervisorDeps struct {
	Enumerator DeviceEnumerator
	Opener     AudioOpener
	VADFactory VADFactory
	STT        STTProvider
	Capturer   ScreenCapturer
	OCR        OCRProvider
	LLM        LLMProvider
	Memory     interface {
		MemoryWriter
		MemoryReader
	}
	Logger Logger
}

// NewSupervisor builds a fully wired Supervisor ready for Start.
func NewSupervisor(cfg Config, deps SupervisorDeps) *Supervisor {
	logger := deps.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	hub := NewHub(logger)
	screen := NewScreenLoop(deps.Capturer, deps.OCR, deps.Memory, cfg, logger)

	s := &Supervisor{
		cfg:    cfg,
		logger: logger,
		screen: screen,
		hub:    hub,
		llm:    deps.LLM,
		memory: deps.Memory,
	}

	// autoAnswer needs the dispatcher's ring, but the dispatcher needs
	// autoAnswer's OnQuestion callback; break the cycle by constructing
	// the callback-holder first with a forwarding closure and filling in
	// the real target once it exists.
	var autoAnswer *AutoAnswerController
	dispatcher := NewTranscriptDispatcher(cfg, logger, deps.Memory, func(question, source string) {
		if autoAnswer != nil {
			autoAnswer.OnQuestion(question, source)
		}
	}, hub.Broadcast)
	s.dispatcher = dispatcher

	autoAnswer = NewAutoAnswerController(cfg, logger, deps.LLM, deps.Memory, deps.Memory, screen, dispatcher.Ring(), hub.Broadcast, hub.Count)
	s.autoAnswer = autoAnswer

	s.audio = NewAudioSupervisor(deps.Enumerator, deps.Opener, deps.VADFactory, deps.STT, cfg, logger, dispatcher.Submit)

	return s
}

// Start is idempotent: starting an already-running Supervisor is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.dispatcher.Start(ctx)
	s.screen.Start(ctx)
	return s.audio.Start(ctx)
}

// Stop tears every collaborator down in reverse order.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.audio.Stop()
	s.screen.Stop()
	s.dispatcher.Stop()
}

// SetRecording toggles whether transcripts and stable screen text persist to
// memory.
func (s *Supervisor) SetRecording(on bool) {
	s.dispatcher.SetRecording(on)
	s.screen.SetRecording(on)
}

// SetAutoAnswer toggles whether detected questions trigger an auto-answer.
func (s *Supervisor) SetAutoAnswer(on bool) {
	s.dispatcher.SetAutoAnswer(on)
}

// Subscribe registers a new frame subscriber.
func (s *Supervisor) Subscribe(id string) *Subscriber {
	return s.hub.Subscribe(id)
}

// Unsubscribe removes a frame subscriber.
func (s *Supervisor) Unsubscribe(id string) {
	s.hub.Unsubscribe(id)
}

// Chat answers an on-demand user query (C8's non-auto-answer path), grounding
// it in recent transcript context, the latest screen text, and memory. It
// streams EventChatStart/EventChatChunk*/EventChatDone to every subscriber
// (spec.md §4.8).
func (s *Supervisor) Chat(ctx context.Context, query string) error {
	snippets, err := s.memory.Query(ctx, query, s.cfg.QueryDefaultK)
	if err != nil {
		s.logger.Warn("memory query failed, continuing without grounding", "error", err)
		snippets = nil
	}

	window := time.Duration(s.cfg.ContextWindowSeconds) * time.Second
	if window <= 0 {
		window = 24 * time.Hour
	}
	contextText := s.dispatcher.Ring().Recent(window, time.Now())
	screenText := s.screen.Latest().Text

	prompt := BuildAnalysisPrompt(contextText+"\n"+screenText, FormatMemoryContext(snippets), query, s.cfg.ContextMaxLength)

	s.hub.Broadcast(Frame{Type: EventChatStart, Question: query, Role: "assistant"})

	var b strings.Builder
	err = s.llm.Stream(ctx, SystemPrompt(), prompt, nil,
		func(tok string) error {
			b.WriteString(tok)
			s.hub.Broadcast(Frame{Type: EventChatChunk, Text: tok, Role: "assistant"})
			return nil
		},
		func(tc ToolCall) error {
			if tc.Name != "store_memory" {
				return nil
			}
			text := tc.Args["text"]
			if text == "" {
				return nil
			}
			_, err := s.memory.Add(ctx, text, "assistant")
			return err
		})

	s.hub.Broadcast(Frame{Type: EventChatDone, Question: query, Role: "assistant"})
	return err
}
