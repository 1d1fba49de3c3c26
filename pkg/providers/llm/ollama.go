package llm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/griffincancode/good-listener/pkg/listener"
)

// OllamaLLM streams chat completions from a local Ollama server. Grounded on
// agalue-sherpa-voice-assistant/internal/llm/client.go's api.Client usage,
// switched from that client's single-shot Chat (stream=false, history
// threaded across turns) to streaming mode (stream=true) since spec.md
// §4.8 requires token-by-token delivery with no conversation memory of its
// own — context comes from the prompt, not client-side history.
type OllamaLLM struct {
	client *api.Client
	model  string
}

// NewOllamaLLM builds a client against baseURL (e.g. "http://localhost:11434").
func NewOllamaLLM(baseURL, model string) (*OllamaLLM, error) {
	if model == "" {
		model = "llama3.2"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	return &OllamaLLM{client: api.NewClient(parsed, nil), model: model}, nil
}

func (l *OllamaLLM) Name() string { return "ollama" }

// Stream implements listener.LLMProvider. Ollama's tool-calling surface is
// message-level, not token-level, so a tool call (if the model emits one)
// arrives as the final streamed message rather than interleaved with text.
func (l *OllamaLLM) Stream(ctx context.Context, systemPrompt, humanPrompt string, image interface{}, onToken func(string) error, onTool func(listener.ToolCall) error) error {
	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: humanPrompt},
	}
	if img, ok := image.(InlineImage); ok && len(img.Data) > 0 {
		messages[len(messages)-1].Images = []api.ImageData{img.Data}
	}

	stream := true
	var callErr error
	err := l.client.Chat(ctx, &api.ChatRequest{
		Model:    l.model,
		Messages: messages,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" && onToken != nil {
			if err := onToken(resp.Message.Content); err != nil {
				callErr = err
				return err
			}
		}
		for _, tc := range resp.Message.ToolCalls {
			if onTool == nil {
				continue
			}
			args := make(map[string]string, len(tc.Function.Arguments))
			for k, v := range tc.Function.Arguments {
				args[k] = fmt.Sprintf("%v", v)
			}
			if err := onTool(listener.ToolCall{Name: tc.Function.Name, Args: args}); err != nil {
				callErr = err
				return err
			}
		}
		return nil
	})
	if callErr != nil {
		return callErr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", listener.ErrLLMAPIError, err)
	}
	return nil
}
