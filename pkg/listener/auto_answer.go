package listener

import (
	"context"
	"strings"
	"sync"
	"time"
)

// AutoAnswerController reacts to detected questions from other-party sources,
// gated by a cooldown so a stream of rapid-fire questions does not trigger a
// new LLM call for every one (spec.md §4.7). Grounded on original_source's
// on_question_detected wiring in backend/app/services/monitor.py, which has
// no equivalent cooldown — the cooldown itself is this build's redesign,
// recorded in DESIGN.md.
type AutoAnswerController struct {
	cfg    Config
	logger Logger
	llm    LLMProvider
	memory MemoryWriter
	reader MemoryReader
	screen *ScreenLoop
	ring   *TranscriptRing

	broadcast      func(Frame)
	subscriberSize func() int

	mu       sync.Mutex
	lastFire time.Time
}

// NewAutoAnswerController wires the collaborators needed to answer a
// detected question: an LLM for generation, memory for grounding and
// store_memory tool-calls, the screen loop for on-screen context, and the
// transcript ring for recent-conversation context. subscriberSize reports
// the live subscriber count so a question is skipped silently when nobody
// is listening (spec.md §4.7: "if no subscribers, skip silently").
func NewAutoAnswerController(cfg Config, logger Logger, llm LLMProvider, memory MemoryWriter, reader MemoryReader, screen *ScreenLoop, ring *TranscriptRing, broadcast func(Frame), subscriberSize func() int) *AutoAnswerController {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &AutoAnswerController{
		cfg:            cfg,
		logger:         logger,
		llm:            llm,
		memory:         memory,
		reader:         reader,
		screen:         screen,
		ring:           ring,
		broadcast:      broadcast,
		subscriberSize: subscriberSize,
	}
}

// OnQuestion is the TranscriptDispatcher callback. It is cheap and
// non-blocking: the subscriber and cooldown checks happen synchronously, the
// LLM call is dispatched onto its own goroutine so it never holds up the
// dispatcher.
func (a *AutoAnswerController) OnQuestion(question, source string) {
	if a.subscriberSize != nil && a.subscriberSize() == 0 {
		return
	}
	if !a.tryFire() {
		return
	}
	go a.answer(context.Background(), question)
}

func (a *AutoAnswerController) tryFire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cooldown := time.Duration(a.cfg.CooldownSeconds * float64(time.Second))
	now := time.Now()
	if now.Sub(a.lastFire) < cooldown {
		return false
	}
	a.lastFire = now
	return true
}

func (a *AutoAnswerController) answer(ctx context.Context, question string) {
	window := time.Duration(a.cfg.ContextWindowSeconds) * time.Second
	transcript := a.ring.Recent(window, time.Now())

	screenText := ""
	if a.screen != nil {
		screenText = a.screen.Latest().Text
		if len(screenText) > a.cfg.ScreenTruncateChars {
			screenText = screenText[:a.cfg.ScreenTruncateChars]
		}
	}

	// spec.md §4.7 step 2: if neither the transcript window nor the screen
	// has anything to offer, say so explicitly rather than handing the model
	// a blank prompt.
	if strings.TrimSpace(transcript) == "" && strings.TrimSpace(screenText) == "" {
		transcript = "No context available."
	}

	memoryContext := ""
	if a.reader != nil {
		if snippets, err := a.reader.Query(ctx, question, a.cfg.QueryDefaultK); err != nil {
			a.logger.Warn("auto-answer memory query failed", "error", err)
		} else {
			memoryContext = FormatMemoryContext(snippets)
		}
	}

	prompt := BuildMonitorPrompt(transcript, screenText, memoryContext)

	if a.broadcast != nil {
		a.broadcast(Frame{Type: EventAutoAnswerStart, Question: question, Role: "assistant"})
	}

	// Tokens are buffered rather than forwarded live: the monitor prompt asks
	// the model to reply with the literal sentinel NO_RESPONSE when nothing
	// in context answers the question, and that verdict is only knowable
	// once the full reply has arrived, so nothing streams until then.
	var b strings.Builder
	err := a.llm.Stream(ctx, SystemPrompt(), prompt, nil,
		func(tok string) error {
			b.WriteString(tok)
			return nil
		},
		func(tc ToolCall) error {
			return a.handleToolCall(ctx, tc)
		})

	if err != nil {
		a.logger.Error("auto-answer llm call failed", "error", err)
		// A Done frame is still emitted on error (spec.md §7: "a failed
		// auto-answer still emits auto_done"), alongside an Error frame so
		// subscribers can distinguish a real failure from a plain NO_RESPONSE.
		if a.broadcast != nil {
			a.broadcast(Frame{Type: EventError, Question: question, Err: err, Role: "assistant"})
			a.broadcast(Frame{Type: EventAutoAnswerDone, Question: question, Role: "assistant"})
		}
		return
	}

	answer := strings.TrimSpace(b.String())
	if a.broadcast == nil {
		return
	}
	if answer != "" && answer != "NO_RESPONSE" {
		a.broadcast(Frame{Type: EventAutoAnswerChunk, Question: question, Text: answer, Role: "assistant"})
	}
	a.broadcast(Frame{Type: EventAutoAnswerDone, Question: question, Role: "assistant"})
}

func (a *AutoAnswerController) handleToolCall(ctx context.Context, tc ToolCall) error {
	if tc.Name != "store_memory" {
		return nil
	}
	text := tc.Args["text"]
	if text == "" {
		return nil
	}
	_, err := a.memory.Add(ctx, text, "assistant")
	return err
}
