// Package vad implements listener.VADProvider. RMSVAD is adapted from the
// teacher's pkg/orchestrator/vad.go RMSVAD: the same root-mean-square
// energy measure, repurposed from a stateful speech-start/speech-end event
// emitter (barge-in detection for a turn-based voice assistant) into the
// stateless per-chunk probability spec.md §4.1's Device Listener expects —
// the Idle/Speaking state machine itself now lives in
// pkg/listener/device_listener.go, not here.
package vad

import "math"

// RMSVAD is a lightweight, dependency-free VAD: it reports a chunk's RMS
// energy as a probability by comparing it against a calibration ceiling.
// Useful as a default when no real VAD model is wired, and as the fake in
// tests that don't want a model dependency at all.
type RMSVAD struct {
	ceiling float64
}

// NewRMSVAD builds a detector that maps an RMS of ceiling or higher to a
// speech probability of 1.0. A typical speaking voice at normal mic gain
// saturates an RMS ceiling around 0.1-0.2 on a [-1,1] float32 signal.
func NewRMSVAD(ceiling float64) *RMSVAD {
	if ceiling <= 0 {
		ceiling = 0.1
	}
	return &RMSVAD{ceiling: ceiling}
}

// SpeechProbability computes the chunk's RMS and scales it linearly against
// ceiling, clamped to [0, 1].
func (v *RMSVAD) SpeechProbability(chunk []float32) (float64, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range chunk {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(chunk)))
	prob := rms / v.ceiling
	if prob > 1 {
		prob = 1
	}
	return prob, nil
}

// Name identifies this provider for logging.
func (v *RMSVAD) Name() string { return "rms-vad" }

// Reset is a no-op: RMSVAD carries no state across chunks other than the
// fixed ceiling, so listener.Resettable is satisfied trivially.
func (v *RMSVAD) Reset() {}
