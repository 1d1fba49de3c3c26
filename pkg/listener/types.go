package listener

import (
	"context"
	"image"
	"time"
)

// Logger is the injected logging sink for the whole runtime. Core packages
// never reach for a global logger; cmd/listener wires a concrete one.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. Used as the zero-value default.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// Utterance is a contiguous speech region bounded by VAD transitions,
// emitted by a Device Listener once end-of-speech is detected.
type Utterance struct {
	Source    string
	PCM       []float32
	StartedAt time.Time
	EndedAt   time.Time
}

// TranscriptItem is a single piece of recognized speech, tagged with its
// source device and arrival time.
type TranscriptItem struct {
	Text      string
	Source    string
	Timestamp time.Time
	Words     int
}

// OCRLine is one recognized text region, optionally carrying its bounding box.
type OCRLine struct {
	Text string
	Box  [4]int // x1, y1, x2, y2; zero value means "no box reported"
}

// ScreenSnapshot is the latest captured frame plus its OCR rendering.
type ScreenSnapshot struct {
	Image     image.Image
	Text      string // newline-joined "[x1,y1,x2,y2] line" rendering, or raw text
	Hash      uint64
	Timestamp time.Time
}

// STTProvider turns utterance PCM into text. Implementations must be safe to
// call from a single blocking worker; the Audio Supervisor is responsible for
// the single-flight serialization spec.md §4.2 requires — providers do not
// need to guard against concurrent calls themselves.
type STTProvider interface {
	Transcribe(ctx context.Context, pcm []float32, lang string) (text string, confidence float64, err error)
	Name() string
}

// VADProvider returns a per-chunk speech probability in [0, 1]. The speech/
// silence state machine itself lives in the Device Listener (spec.md §4.1),
// not in the provider.
type VADProvider interface {
	SpeechProbability(chunk []float32) (float64, error)
	Name() string
}

// OCRProvider extracts text (optionally region-boxed) from a captured image.
// A true external collaborator per spec.md §1/§6 — no concrete adapter ships
// here because no OCR engine binding appears anywhere in the retrieval pack.
type OCRProvider interface {
	Extract(ctx context.Context, img image.Image) ([]OCRLine, error)
}

// ScreenCapturer grabs the primary monitor. A true external collaborator,
// same reasoning as OCRProvider.
type ScreenCapturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// ToolCall is a structured function-call surfaced by an LLM provider mid-stream.
type ToolCall struct {
	Name string
	Args map[string]string
}

// LLMProvider streams tokens for a built prompt. onToken is invoked for every
// text fragment as it arrives; onTool is invoked for any tool-call the model
// emits (spec.md §4.8's store_memory). Either callback may be nil.
type LLMProvider interface {
	Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(ToolCall) error) error
	Name() string
}

// MemoryWriter is the narrow interface the LLM client and auto-answer
// controller use to persist a store_memory tool-call, rather than depending
// on the whole Vector Memory subsystem (spec.md §9's cyclic-reference
// resolution via constructor injection).
type MemoryWriter interface {
	Add(ctx context.Context, text, source string) (string, error)
}

// MemoryReader is the narrow read-side interface the LLM client uses to
// ground a human query in prior context.
type MemoryReader interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// EventType tags an OrchestratorEvent-style frame sent to subscribers.
type EventType string

const (
	EventTranscript       EventType = "transcript"
	EventChatStart         EventType = "start"
	EventChatChunk         EventType = "chunk"
	EventChatDone          EventType = "done"
	EventAutoAnswerStart   EventType = "auto_start"
	EventAutoAnswerChunk   EventType = "auto_chunk"
	EventAutoAnswerDone    EventType = "auto_done"
	EventQuestionDetected  EventType = "question_detected"
	EventError             EventType = "error"
)

// Frame is an outbound payload delivered to a Subscriber (spec.md §6).
type Frame struct {
	Type     EventType
	Text     string // transcript text, or chunk content
	Source   string // transcript source tag
	Question string // the question a chat/auto-answer frame responds to
	Role     string // "assistant", set on EventChatStart
	Err      error
}

// Config enumerates every tunable knob named in spec.md §6, with defaults
// matching the documented values.
type Config struct {
	// Audio
	SampleRate        int
	VADThreshold      float64
	MaxSilenceChunks  int
	IncludeDeviceSubs []string
	ExcludedDevices   []string
	CaptureSystem     bool

	// Screen
	CaptureRateSeconds    float64
	HashMatchSleepSeconds float64
	StableCountThresh     int
	MinTextLength         int
	PhashGridSize         int

	// Memory
	QueryDefaultK       int
	PruneThreshold      int
	PruneKeep           int
	ProtectedAccessCnt  int
	RecencyWeight       float64
	AccessWeight        float64
	UniquenessWeight    float64
	ClusterThreshold    float64
	DupThreshold        float64
	PoolSize            int
	PoolAcquireTimeout  time.Duration

	// Transcript
	RingCapacity        int
	MinWordCountForMem  int

	// Auto-answer
	AutoAnswerEnabled      bool
	CooldownSeconds        float64
	MinQuestionLength      int
	ContextWindowSeconds   int
	ScreenTruncateChars    int
	OtherPartySources      []string

	// LLM
	LLMProvider        string // "gemini" | "ollama"
	LLMModel           string
	ContextMaxLength   int
}

// DefaultConfig returns the knob values spec.md §6 specifies by default.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		VADThreshold:      0.5,
		MaxSilenceChunks:  15,
		IncludeDeviceSubs: []string{"blackhole", "vb-cable", "loopback"},
		ExcludedDevices:   []string{"iphone", "teams"},
		CaptureSystem:     true,

		CaptureRateSeconds:    1.0,
		HashMatchSleepSeconds: 0.5,
		StableCountThresh:     2,
		MinTextLength:         50,
		PhashGridSize:         32,

		QueryDefaultK:      5,
		PruneThreshold:     10000,
		PruneKeep:          5000,
		ProtectedAccessCnt: 5,
		RecencyWeight:      0.25,
		AccessWeight:       0.5,
		UniquenessWeight:   0.25,
		ClusterThreshold:   0.75,
		DupThreshold:       0.92,
		PoolSize:           3,
		PoolAcquireTimeout: 2 * time.Second,

		RingCapacity:       30,
		MinWordCountForMem: 4,

		AutoAnswerEnabled:    true,
		CooldownSeconds:      10,
		MinQuestionLength:    10,
		ContextWindowSeconds: 120,
		ScreenTruncateChars:  2000,
		OtherPartySources:    []string{"system"},

		LLMProvider:      "gemini",
		LLMModel:         "",
		ContextMaxLength: 5000,
	}
}
