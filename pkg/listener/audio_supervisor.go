package listener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DeviceInfo describes one OS input device as reported by the audio
// collaborator (e.g. malgo). IsDefault marks the system default input.
type DeviceInfo struct {
	ID        string
	Name      string
	IsDefault bool
}

// DeviceEnumerator lists available input devices. A true external
// collaborator (spec.md §1) — cmd/listener supplies a malgo-backed
// implementation; tests supply a fake list.
type DeviceEnumerator interface {
	InputDevices() ([]DeviceInfo, error)
}

// AudioStream is a running capture on one device; Stop closes it.
type AudioStream interface {
	Stop() error
}

// AudioOpener opens a capture stream on a device, invoking onSamples with
// mono float32 chunks as they arrive. A true external collaborator — the
// concrete capture implementation (malgo) lives in cmd/listener.
type AudioOpener interface {
	Open(device DeviceInfo, sampleRate int, onSamples func([]float32)) (AudioStream, error)
}

// VADFactory builds a fresh VADProvider instance, one per device, since most
// VAD implementations carry per-stream state.
type VADFactory func() VADProvider

// AudioSupervisor enumerates input devices, owns one DeviceListener per
// device, serializes transcription through a single TranscriptionWorker, and
// forwards (text, source) pairs to the Transcript Dispatcher (spec.md §4.3).
type AudioSupervisor struct {
	enumerator DeviceEnumerator
	opener     AudioOpener
	vadFactory VADFactory
	worker     *TranscriptionWorker
	cfg        Config
	logger     Logger

	onTranscript func(text, source string)

	mu       sync.Mutex
	running  bool
	streams  map[string]AudioStream
	listens  map[string]*DeviceListener
}

// NewAudioSupervisor builds a supervisor ready to Start.
func NewAudioSupervisor(enumerator DeviceEnumerator, opener AudioOpener, vadFactory VADFactory, stt STTProvider, cfg Config, logger Logger, onTranscript func(text, source string)) *AudioSupervisor {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &AudioSupervisor{
		enumerator:   enumerator,
		opener:       opener,
		vadFactory:   vadFactory,
		worker:       NewTranscriptionWorker(stt),
		cfg:          cfg,
		logger:       logger,
		onTranscript: onTranscript,
		streams:      make(map[string]AudioStream),
		listens:      make(map[string]*DeviceListener),
	}
}

// selectDevices applies spec.md §4.3's inclusion/exclusion policy: always the
// default input, plus any device whose name matches an include substring,
// minus any that match an exclude substring.
func selectDevices(all []DeviceInfo, cfg Config) []DeviceInfo {
	var out []DeviceInfo
	seen := make(map[string]bool)

	matches := func(name string, subs []string) bool {
		lower := strings.ToLower(name)
		for _, s := range subs {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}

	for _, d := range all {
		include := d.IsDefault
		if !include && cfg.CaptureSystem {
			include = matches(d.Name, cfg.IncludeDeviceSubs)
		}
		if !include {
			continue
		}
		if matches(d.Name, cfg.ExcludedDevices) {
			continue
		}
		if !seen[d.ID] {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

// Start is idempotent: calling it while already running is a no-op
// (spec.md §4.3).
func (a *AudioSupervisor) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	devices, err := a.enumerator.InputDevices()
	if err != nil {
		return fmt.Errorf("enumerate input devices: %w", err)
	}

	for _, dev := range selectDevices(devices, a.cfg) {
		a.startDevice(ctx, dev)
	}
	return nil
}

func (a *AudioSupervisor) startDevice(ctx context.Context, dev DeviceInfo) {
	vad := a.vadFactory()
	dl := NewDeviceListener(dev.Name, a.cfg.SampleRate, vad, a.cfg, a.logger,
		func(u Utterance) { a.handleUtterance(ctx, u) },
		func(source string, err error) {
			a.logger.Error("device listener failed, isolating device", "source", source, "error", err)
			a.mu.Lock()
			delete(a.listens, source)
			if s, ok := a.streams[source]; ok {
				_ = s.Stop()
				delete(a.streams, source)
			}
			a.mu.Unlock()
		})
	dl.Start()

	stream, err := a.opener.Open(dev, a.cfg.SampleRate, dl.Push)
	if err != nil {
		a.logger.Error("failed to open audio device, skipping", "device", dev.Name, "error", err)
		dl.Stop(time.Second)
		return
	}

	a.mu.Lock()
	a.listens[dev.Name] = dl
	a.streams[dev.Name] = stream
	a.mu.Unlock()
}

func (a *AudioSupervisor) handleUtterance(ctx context.Context, u Utterance) {
	text, _, err := a.worker.Transcribe(ctx, u.PCM, "")
	if err != nil {
		a.logger.Error("transcription failed", "source", u.Source, "error", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	if a.onTranscript != nil {
		a.onTranscript(text, u.Source)
	}
}

// Stop signals every listener, waits bounded time for each, then clears
// supervisor state (spec.md §4.3).
func (a *AudioSupervisor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	listens := a.listens
	streams := a.streams
	a.listens = make(map[string]*DeviceListener)
	a.streams = make(map[string]AudioStream)
	a.mu.Unlock()

	for _, s := range streams {
		_ = s.Stop()
	}
	for _, dl := range listens {
		dl.Stop(2 * time.Second)
	}
}
