package listener

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// transcriptJob is one (text, source) pair queued for processing.
type transcriptJob struct {
	text   string
	source string
}

// TranscriptDispatcher is the Transcript Worker (C6): it serializes incoming
// transcripts from every Device Listener, keeps the recent-transcript ring,
// optionally persists to memory, detects questions from configured
// "other party" sources, and fans frames out to subscribers. Grounded on
// original_source's _transcript_worker/_process_transcript
// (backend/app/services/monitor.py).
type TranscriptDispatcher struct {
	cfg    Config
	logger Logger
	memory MemoryWriter
	ring   *TranscriptRing

	recording  int32
	autoAnswer int32

	onQuestion func(question, source string)
	broadcast  func(Frame)

	jobs chan transcriptJob
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewTranscriptDispatcher builds a dispatcher; call Start to begin draining.
func NewTranscriptDispatcher(cfg Config, logger Logger, memory MemoryWriter, onQuestion func(question, source string), broadcast func(Frame)) *TranscriptDispatcher {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	auto := int32(0)
	if cfg.AutoAnswerEnabled {
		auto = 1
	}
	return &TranscriptDispatcher{
		cfg:        cfg,
		logger:     logger,
		memory:     memory,
		ring:       NewTranscriptRing(cfg.RingCapacity),
		autoAnswer: auto,
		onQuestion: onQuestion,
		broadcast:  broadcast,
		jobs:       make(chan transcriptJob, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetRecording toggles whether accepted transcripts are persisted to memory.
func (t *TranscriptDispatcher) SetRecording(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&t.recording, v)
}

// SetAutoAnswer toggles whether questions from other-party sources trigger
// the auto-answer callback.
func (t *TranscriptDispatcher) SetAutoAnswer(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&t.autoAnswer, v)
}

// Ring exposes the underlying recent-transcript ring (used by the auto-answer
// controller and the prompt builder to assemble context windows).
func (t *TranscriptDispatcher) Ring() *TranscriptRing {
	return t.ring
}

// Start launches the single draining worker goroutine. Spec.md §4.6 and §8
// require transcripts to be processed in the order they were submitted.
func (t *TranscriptDispatcher) Start(ctx context.Context) {
	go t.run(ctx)
}

// Stop signals the worker to drain remaining jobs is not attempted; it exits
// as soon as the current job finishes.
func (t *TranscriptDispatcher) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Submit enqueues a transcript for processing. Non-blocking: if the queue is
// full the item is dropped and logged, since a backed-up dispatcher should
// never stall a Device Listener.
func (t *TranscriptDispatcher) Submit(text, source string) {
	select {
	case t.jobs <- transcriptJob{text: text, source: source}:
	default:
		t.logger.Warn("transcript dispatcher queue full, dropping item", "source", source)
	}
}

func (t *TranscriptDispatcher) run(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case job := <-t.jobs:
			t.process(ctx, job)
		}
	}
}

func (t *TranscriptDispatcher) process(ctx context.Context, job transcriptJob) {
	item := TranscriptItem{
		Text:      job.text,
		Source:    job.source,
		Timestamp: time.Now(),
		Words:     len(strings.Fields(job.text)),
	}
	t.ring.Add(item)

	if t.broadcast != nil {
		t.broadcast(Frame{Type: EventTranscript, Text: item.Text, Source: item.Source})
	}

	if atomic.LoadInt32(&t.recording) == 1 && item.Words >= t.cfg.MinWordCountForMem {
		tagged := strings.ToUpper(item.Source) + ": " + item.Text
		if _, err := t.memory.Add(ctx, tagged, "audio"); err != nil {
			t.logger.Error("failed to persist transcript", "source", item.Source, "error", err)
		}
	}

	if !isOtherParty(item.Source, t.cfg.OtherPartySources) {
		return
	}
	if !IsQuestion(item.Text, t.cfg.MinQuestionLength) {
		return
	}

	if t.broadcast != nil {
		t.broadcast(Frame{Type: EventQuestionDetected, Text: item.Text, Source: item.Source})
	}

	if atomic.LoadInt32(&t.autoAnswer) == 0 {
		return
	}
	if t.onQuestion != nil {
		t.onQuestion(item.Text, item.Source)
	}
}

func isOtherParty(source string, others []string) bool {
	for _, o := range others {
		if strings.EqualFold(o, source) {
			return true
		}
	}
	return false
}
