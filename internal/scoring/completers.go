package scoring

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/config"
	"github.com/sells-group/labelscore/pkg/anthropic"
	"github.com/sells-group/labelscore/pkg/openrouter"
)

const maxReplyTokens = 600

// ErrMissingKey is returned when the configured LLM provider has no key.
var ErrMissingKey = eris.New("scoring: llm api key is not configured")

// NewCompleter builds the Completer selected by cfg.LLM.Provider.
func NewCompleter(cfg *config.Config) (Completer, error) {
	switch cfg.LLM.Provider {
	case "openrouter", "":
		if cfg.OpenRouter.Key == "" {
			return nil, ErrMissingKey
		}
		opts := []openrouter.Option{
			openrouter.WithModel(cfg.OpenRouter.Model),
			openrouter.WithReferer(cfg.OpenRouter.Referer, cfg.OpenRouter.Title),
		}
		if cfg.OpenRouter.BaseURL != "" {
			opts = append(opts, openrouter.WithBaseURL(cfg.OpenRouter.BaseURL))
		}
		return NewOpenRouter(openrouter.NewClient(cfg.OpenRouter.Key, opts...)), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, ErrMissingKey
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("scoring: unknown llm provider %q", cfg.LLM.Provider)
	}
}

// OpenRouter completes through OpenRouter chat completions with JSON mode.
type OpenRouter struct {
	client openrouter.Client
}

// NewOpenRouter wraps an OpenRouter client.
func NewOpenRouter(client openrouter.Client) *OpenRouter {
	return &OpenRouter{client: client}
}

// Name implements Completer.
func (o *OpenRouter) Name() string { return "openrouter" }

// Model implements Completer.
func (o *OpenRouter) Model() string { return o.client.Model() }

// Complete implements Completer.
func (o *OpenRouter) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := 0.0
	maxTokens := maxReplyTokens
	resp, err := o.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Messages: []openrouter.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
		ResponseFormat: openrouter.JSONObject,
	})
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// Anthropic completes through the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic wraps an Anthropic client. An empty model uses
// anthropic.DefaultModel.
func NewAnthropic(client anthropic.Client, model string) *Anthropic {
	if model == "" {
		model = anthropic.DefaultModel
	}
	return &Anthropic{client: client, model: model}
}

// Name implements Completer.
func (a *Anthropic) Name() string { return "anthropic" }

// Model implements Completer.
func (a *Anthropic) Model() string { return a.model }

// Complete implements Completer. The system prompt carries a cache
// breakpoint since it never changes between calls.
func (a *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   maxReplyTokens,
		System:      anthropic.BuildCachedSystemBlocks(system),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(a.model, "score")
	return resp.Text(), nil
}
