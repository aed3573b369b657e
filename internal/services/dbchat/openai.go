package dbchat

import (
	"context"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const defaultOpenAIModel = openai.ChatModelGPT4o

type openaiProvider struct {
	config      *models.ChatProviderConfig
	maxTokens   int64
	clientCache *clientcache.Cache[*openai.Client]
}

func newOpenAIProvider(config *models.ChatProviderConfig, maxTokens int64) *openaiProvider {
	return &openaiProvider{
		config:      config,
		maxTokens:   maxTokens,
		clientCache: clientcache.NewCache[*openai.Client](),
	}
}

func (p *openaiProvider) client() (*openai.Client, error) {
	return p.clientCache.GetOrCreate("openai:"+p.config.BaseURL, func() (*openai.Client, error) {
		opts := []option.RequestOption{
			option.WithAPIKey(p.config.APIKey),
		}
		if p.config.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(p.config.BaseURL))
		}
		client := openai.NewClient(opts...)
		return &client, nil
	})
}

func (p *openaiProvider) model(override string) string {
	if override != "" {
		return override
	}
	if p.config.Model != "" {
		return p.config.Model
	}
	return defaultOpenAIModel
}

func (p *openaiProvider) Complete(ctx context.Context, prompt, modelOverride, requestID string) (string, string, error) {
	client, err := p.client()
	if err != nil {
		return "", "", models.NewProviderError("openai", "client creation failed", err)
	}

	model := p.model(modelOverride)
	fiberlog.Infof("[%s] openai request - model: %s, max_tokens: %d", requestID, model, p.maxTokens)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(p.maxTokens),
	})
	if err != nil {
		return "", "", models.NewProviderError("openai", "completion request failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", "", models.NewProviderError("openai", "completion returned no choices", nil)
	}

	fiberlog.Infof("[%s] openai request completed - usage: prompt:%d, completion:%d",
		requestID, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	return completion.Choices[0].Message.Content, model, nil
}

func (p *openaiProvider) StreamCompletion(ctx context.Context, prompt, modelOverride, requestID string, emit func(delta string) error) (string, string, error) {
	client, err := p.client()
	if err != nil {
		return "", "", models.NewProviderError("openai", "client creation failed", err)
	}

	model := p.model(modelOverride)
	fiberlog.Infof("[%s] openai streaming request - model: %s", requestID, model)

	stream := client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(p.maxTokens),
	})
	defer func() {
		_ = stream.Close()
	}()

	var answer string
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		answer += delta
		if err := emit(delta); err != nil {
			return answer, model, err
		}
	}
	if err := stream.Err(); err != nil {
		return answer, model, models.NewProviderError("openai", "stream failed", err)
	}

	return answer, model, nil
}
