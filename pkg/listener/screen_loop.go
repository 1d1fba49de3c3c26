package listener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ScreenLoop periodically captures the screen, debounces unchanged frames via
// a perceptual hash, OCRs the result, and persists text once it has held
// stable for a configured number of consecutive captures (spec.md §4.4,
// grounded on original_source's _screen_loop in
// backend/app/services/monitor.py).
type ScreenLoop struct {
	capturer ScreenCapturer
	ocr      OCRProvider
	memory   MemoryWriter
	cfg      Config
	logger   Logger

	recording int32 // atomic bool

	mu          sync.Mutex
	latest      ScreenSnapshot
	lastHash    uint64
	lastText    string
	lastStored  string
	stableCount int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewScreenLoop builds a loop that is not yet running; call Start.
func NewScreenLoop(capturer ScreenCapturer, ocr OCRProvider, memory MemoryWriter, cfg Config, logger Logger) *ScreenLoop {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &ScreenLoop{
		capturer: capturer,
		ocr:      ocr,
		memory:   memory,
		cfg:      cfg,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetRecording toggles whether stable OCR text is persisted to memory.
func (s *ScreenLoop) SetRecording(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&s.recording, v)
}

func (s *ScreenLoop) isRecording() bool {
	return atomic.LoadInt32(&s.recording) == 1
}

// Latest returns the most recently captured snapshot.
func (s *ScreenLoop) Latest() ScreenSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Start launches the capture loop on its own goroutine.
func (s *ScreenLoop) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the loop to exit and blocks until it does.
func (s *ScreenLoop) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *ScreenLoop) run(ctx context.Context) {
	defer close(s.done)

	interval := time.Duration(s.cfg.CaptureRateSeconds * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}
	hashSleep := time.Duration(s.cfg.HashMatchSleepSeconds * float64(time.Second))
	if hashSleep <= 0 {
		hashSleep = 500 * time.Millisecond
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			next := interval
			if !s.tick(ctx) {
				next = hashSleep
			}
			timer.Reset(next)
		}
	}
}

// tick captures and processes one cycle, returning false when the frame was
// skipped because its perceptual hash matched the previous one (spec.md
// §4.4: "sleep shorter and skip OCR" in that case).
func (s *ScreenLoop) tick(ctx context.Context) bool {
	img, err := s.capturer.Capture(ctx)
	if err != nil {
		s.logger.Error("screen capture failed", "error", err)
		return true
	}

	hash := PerceptualHash(img, s.cfg.PhashGridSize)

	s.mu.Lock()
	unchanged := s.latest.Image != nil && hash == s.lastHash
	s.mu.Unlock()
	if unchanged {
		return false
	}

	lines, err := s.ocr.Extract(ctx, img)
	if err != nil {
		s.logger.Error("ocr extraction failed", "error", err)
		return true
	}
	text := renderOCRLines(lines)

	s.mu.Lock()
	s.lastHash = hash
	if text == s.lastText {
		s.stableCount++
	} else {
		// Counts this first observation of text, so a threshold of 2 is met
		// on the *second* identical reading, not the third (spec.md §8 S5).
		s.lastText = text
		s.stableCount = 1
	}
	snapshot := ScreenSnapshot{Image: img, Text: text, Hash: hash, Timestamp: time.Now()}
	s.latest = snapshot
	stable := s.stableCount
	lastStored := s.lastStored
	s.mu.Unlock()

	if !s.isRecording() {
		return true
	}
	if stable < s.cfg.StableCountThresh {
		return true
	}
	if text == lastStored || len(text) < s.cfg.MinTextLength {
		return true
	}

	if _, err := s.memory.Add(ctx, text, "screen"); err != nil {
		s.logger.Error("failed to persist screen text", "error", err)
		return true
	}
	s.mu.Lock()
	s.lastStored = text
	s.mu.Unlock()
	return true
}

// renderOCRLines joins recognized regions into ScreenSnapshot.Text. A region
// carrying a bounding box renders as "[x1,y1,x2,y2] line" (SPEC_FULL.md's
// screen-capture supplement); a region with the zero-value box (no box
// reported by the OCR provider) renders as bare text.
func renderOCRLines(lines []OCRLine) string {
	if len(lines) == 0 {
		return ""
	}
	rendered := make([]string, len(lines))
	for i, l := range lines {
		if l.Box == ([4]int{}) {
			rendered[i] = l.Text
			continue
		}
		rendered[i] = fmt.Sprintf("[%d,%d,%d,%d] %s", l.Box[0], l.Box[1], l.Box[2], l.Box[3], l.Text)
	}
	return strings.Join(rendered, "\n")
}
