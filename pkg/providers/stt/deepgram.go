package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/griffincancode/good-listener/pkg/audio"
)

// DeepgramSTT streams raw PCM to Deepgram's /v1/listen endpoint.
type DeepgramSTT struct {
	apiKey string
	url    string
}

// NewDeepgramSTT builds a client.
func NewDeepgramSTT(apiKey string) *DeepgramSTT {
	return &DeepgramSTT{apiKey: apiKey, url: "https://api.deepgram.com/v1/listen"}
}

func (s *DeepgramSTT) Name() string { return "deepgram-stt" }

// Transcribe implements listener.STTProvider, uploading raw 16-bit PCM
// (Deepgram accepts the headerless `audio/l16` content type, so no WAV
// container is needed here unlike the multipart-upload backends).
func (s *DeepgramSTT) Transcribe(ctx context.Context, pcm []float32, lang string) (string, float64, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", 0, err
	}
	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	if lang != "" {
		params.Set("language", lang)
	}
	u.RawQuery = params.Encode()

	payload := audio.Float32ToPCM16(pcm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", sampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", 0, nil
	}
	alt := result.Results.Channels[0].Alternatives[0]
	return alt.Transcript, alt.Confidence, nil
}
