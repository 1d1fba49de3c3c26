package listener

import (
	"fmt"
	"sync"
	"time"
)

const vadChunkSize = 512

// vadState is the Idle/Speaking state machine spec.md §4.1 describes.
type vadState int

const (
	vadIdle vadState = iota
	vadSpeaking
)

// Resettable is implemented by VAD providers that keep internal state across
// calls (e.g. a running average) and need to be cleared between utterances.
type Resettable interface {
	Reset()
}

// DeviceListener owns one input device: it drains raw audio pushed onto its
// queue, runs it through the VAD in fixed 512-sample windows, and emits a
// complete Utterance once a speech region ends. It runs on its own goroutine
// and never blocks its caller (spec.md §4.1, §5 "Device listeners do NOT
// cooperate; they run on dedicated threads").
type DeviceListener struct {
	Source     string
	sampleRate int
	vad        VADProvider
	threshold  float64
	maxSilence int
	logger     Logger

	onUtterance func(Utterance)
	onError     func(source string, err error)

	queue chan []float32

	state         vadState
	vadBuffer     []float32
	speechBuffer  []float32
	silenceChunks int
	speechStarted time.Time

	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewDeviceListener builds a listener for one device. cfg supplies the VAD
// threshold and max-silence-chunks knobs (spec.md §6 audio config).
func NewDeviceListener(source string, sampleRate int, vad VADProvider, cfg Config, logger Logger, onUtterance func(Utterance), onError func(string, error)) *DeviceListener {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &DeviceListener{
		Source:      source,
		sampleRate:  sampleRate,
		vad:         vad,
		threshold:   cfg.VADThreshold,
		maxSilence:  cfg.MaxSilenceChunks,
		logger:      logger,
		onUtterance: onUtterance,
		onError:     onError,
		queue:       make(chan []float32, 256),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the drain loop on a dedicated goroutine.
func (d *DeviceListener) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Push enqueues a raw chunk of mono float32 samples captured from the device.
// Non-blocking: if the queue is full, the chunk is dropped and logged, mirroring
// the "don't block the audio callback" discipline malgo-style capture requires.
func (d *DeviceListener) Push(samples []float32) {
	cp := make([]float32, len(samples))
	copy(cp, samples)
	select {
	case d.queue <- cp:
	default:
		d.logger.Warn("device listener queue full, dropping chunk", "source", d.Source)
	}
}

// Stop signals the loop to exit and waits up to timeout for it to finish.
func (d *DeviceListener) Stop(timeout time.Duration) {
	d.closeOnce.Do(func() {
		close(d.stop)
	})

	doneCh := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(timeout):
		d.logger.Warn("device listener stop timed out", "source", d.Source)
	}
}

func (d *DeviceListener) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case samples := <-d.queue:
			if err := d.process(samples); err != nil {
				d.logger.Error("device listener VAD failure, stopping", "source", d.Source, "error", err)
				if d.onError != nil {
					d.onError(d.Source, fmt.Errorf("%w: %v", ErrVADFailed, err))
				}
				return
			}
		}
	}
}

func (d *DeviceListener) process(samples []float32) error {
	d.vadBuffer = append(d.vadBuffer, samples...)

	for len(d.vadBuffer) >= vadChunkSize {
		chunk := d.vadBuffer[:vadChunkSize]
		d.vadBuffer = d.vadBuffer[vadChunkSize:]

		prob, err := d.vad.SpeechProbability(chunk)
		if err != nil {
			return err
		}

		speaking := prob > d.threshold

		switch d.state {
		case vadIdle:
			if speaking {
				d.state = vadSpeaking
				d.speechStarted = time.Now()
				d.speechBuffer = append(d.speechBuffer[:0], chunk...)
				d.silenceChunks = 0
			}
		case vadSpeaking:
			d.speechBuffer = append(d.speechBuffer, chunk...)
			if speaking {
				d.silenceChunks = 0
			} else {
				d.silenceChunks++
				if d.silenceChunks >= d.maxSilence {
					d.finishUtterance()
				}
			}
		}
	}
	return nil
}

func (d *DeviceListener) finishUtterance() {
	minSamples := int(float64(d.sampleRate) * 0.5)
	if len(d.speechBuffer) >= minSamples {
		u := Utterance{
			Source:    d.Source,
			PCM:       append([]float32(nil), d.speechBuffer...),
			StartedAt: d.speechStarted,
			EndedAt:   time.Now(),
		}
		if d.onUtterance != nil {
			d.onUtterance(u)
		}
	}

	d.state = vadIdle
	d.speechBuffer = nil
	d.silenceChunks = 0
	if r, ok := d.vad.(Resettable); ok {
		r.Reset()
	}
}

// Downmix averages interleaved multi-channel samples down to mono, per
// spec.md §4.1 ("Stereo input is downmixed (mean of channels) before VAD").
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
