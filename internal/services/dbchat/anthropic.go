package dbchat

import (
	"context"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/utils/clientcache"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

type anthropicProvider struct {
	config      *models.ChatProviderConfig
	maxTokens   int64
	clientCache *clientcache.Cache[*anthropic.Client]
}

func newAnthropicProvider(config *models.ChatProviderConfig, maxTokens int64) *anthropicProvider {
	return &anthropicProvider{
		config:      config,
		maxTokens:   maxTokens,
		clientCache: clientcache.NewCache[*anthropic.Client](),
	}
}

func (p *anthropicProvider) client() (*anthropic.Client, error) {
	return p.clientCache.GetOrCreate("anthropic:"+p.config.BaseURL, func() (*anthropic.Client, error) {
		opts := []option.RequestOption{
			option.WithAPIKey(p.config.APIKey),
		}
		if p.config.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(p.config.BaseURL))
		}
		client := anthropic.NewClient(opts...)
		return &client, nil
	})
}

func (p *anthropicProvider) model(override string) string {
	if override != "" {
		return override
	}
	if p.config.Model != "" {
		return p.config.Model
	}
	return defaultAnthropicModel
}

func (p *anthropicProvider) Complete(ctx context.Context, prompt, modelOverride, requestID string) (string, string, error) {
	client, err := p.client()
	if err != nil {
		return "", "", models.NewProviderError("anthropic", "client creation failed", err)
	}

	model := p.model(modelOverride)
	fiberlog.Infof("[%s] anthropic request - model: %s, max_tokens: %d", requestID, model, p.maxTokens)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens: p.maxTokens,
		Model:     anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", "", models.NewProviderError("anthropic", "message request failed", err)
	}

	var answer string
	for _, block := range message.Content {
		if block.Type == "text" {
			answer += block.Text
		}
	}

	fiberlog.Infof("[%s] anthropic request completed - usage: input:%d, output:%d",
		requestID, message.Usage.InputTokens, message.Usage.OutputTokens)
	return answer, model, nil
}

// StreamCompletion streams the answer token by token through emit. It
// returns the accumulated answer and the model used.
func (p *anthropicProvider) StreamCompletion(ctx context.Context, prompt, modelOverride, requestID string, emit func(delta string) error) (string, string, error) {
	client, err := p.client()
	if err != nil {
		return "", "", models.NewProviderError("anthropic", "client creation failed", err)
	}

	model := p.model(modelOverride)
	fiberlog.Infof("[%s] anthropic streaming request - model: %s", requestID, model)

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		MaxTokens: p.maxTokens,
		Model:     anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	defer func() {
		_ = stream.Close()
	}()

	var answer string
	for stream.Next() {
		event := stream.Current()
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			answer += event.Delta.Text
			if err := emit(event.Delta.Text); err != nil {
				return answer, model, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return answer, model, models.NewProviderError("anthropic", "stream failed", err)
	}

	return answer, model, nil
}
