// Package llm implements the two LLM backends spec.md §4.8 allows
// (`gemini`, `ollama`) against the listener.LLMProvider streaming contract.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/griffincancode/good-listener/pkg/listener"
)

// GeminiLLM streams completions from Google's Generative Language API via
// streamGenerateContent, reading the response the way
// AltairaLabs-PromptKit/runtime/providers/gemini/gemini_streaming.go does:
// the endpoint returns one JSON array, not NDJSON, so the whole body
// is read before parsing candidates one at a time.
type GeminiLLM struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiLLM builds a Gemini client. Per spec.md §4.8, constructing one
// without an API key is the caller's responsibility to avoid — Stream fails
// with ErrLLMNotConfigured when apiKey is empty.
func NewGeminiLLM(apiKey, model string) *GeminiLLM {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiLLM{apiKey: apiKey, model: model, httpClient: &http.Client{}}
}

func (l *GeminiLLM) Name() string { return "gemini" }

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	InlineData   *geminiInlineData   `json:"inlineData,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiFunctionCall struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Stream implements listener.LLMProvider. image, when non-nil, must be an
// InlineImage{MimeType, Data []byte} attached as an extra content part on
// the human message, per spec.md §4.8.
func (l *GeminiLLM) Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(listener.ToolCall) error) error {
	if l.apiKey == "" {
		return listener.ErrLLMNotConfigured
	}

	userParts := []geminiPart{{Text: humanPrompt}}
	if img, ok := image.(InlineImage); ok && len(img.Data) > 0 {
		userParts = append(userParts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MimeType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: userParts}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:streamGenerateContent?key=%s", l.model, l.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", listener.ErrLLMAPIError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", listener.ErrLLMAPIError, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return listener.ErrLLMRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", listener.ErrLLMAPIError, resp.StatusCode, string(raw))
	}

	var chunks []geminiResponse
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return fmt.Errorf("%w: parse stream: %v", listener.ErrLLMAPIError, err)
	}

	for _, chunk := range chunks {
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text != "" && onToken != nil {
				if err := onToken(part.Text); err != nil {
					return err
				}
			}
			if part.FunctionCall != nil && onTool != nil {
				if err := onTool(listener.ToolCall{Name: part.FunctionCall.Name, Args: part.FunctionCall.Args}); err != nil {
					return err
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// InlineImage is the image payload Stream accepts for multimodal prompts.
type InlineImage struct {
	MimeType string
	Data     []byte
}
