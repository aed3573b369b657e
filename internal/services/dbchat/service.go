package dbchat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/datasources"
	"github.com/datadeck-io/datadeck-api/internal/utils"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

var ErrChatNotConfigured = errors.New("database chat is not configured")

// completionProvider is the vendor seam. Both implementations return the
// full answer text and the concrete model that produced it.
type completionProvider interface {
	Complete(ctx context.Context, prompt, modelOverride, requestID string) (string, string, error)
	StreamCompletion(ctx context.Context, prompt, modelOverride, requestID string, emit func(delta string) error) (string, string, error)
}

// Service answers natural-language questions about saved data sources.
// The question, dialect and optional schema snippet go to the configured
// LLM vendor; credentials never leave the data source row.
type Service struct {
	config      *models.ChatConfig
	dataSources *datasources.Service
	anthropic   *anthropicProvider
	openai      *openaiProvider
	cache       *ResponseCache
}

func NewService(config *models.ChatConfig, dataSourcesService *datasources.Service) (*Service, error) {
	s := &Service{
		config:      config,
		dataSources: dataSourcesService,
	}
	if config == nil {
		return s, nil
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	if config.Anthropic != nil && config.Anthropic.APIKey != "" {
		s.anthropic = newAnthropicProvider(config.Anthropic, maxTokens)
	}
	if config.OpenAI != nil && config.OpenAI.APIKey != "" {
		s.openai = newOpenAIProvider(config.OpenAI, maxTokens)
	}

	cache, err := NewResponseCache(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat response cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

// Enabled reports whether at least one vendor is configured.
func (s *Service) Enabled() bool {
	return s.anthropic != nil || s.openai != nil
}

// resolveProvider picks the vendor and model for one request. An explicit
// "provider:model" override wins over the configured default.
func (s *Service) resolveProvider(modelSpec string) (completionProvider, string, error) {
	if modelSpec != "" {
		providerName, model, err := utils.ParseProviderModel(modelSpec)
		if err != nil {
			return nil, "", models.NewValidationError("invalid model specification", err)
		}
		switch models.ChatProvider(providerName) {
		case models.ChatProviderAnthropic:
			if s.anthropic == nil {
				return nil, "", ErrChatNotConfigured
			}
			return s.anthropic, model, nil
		case models.ChatProviderOpenAI:
			if s.openai == nil {
				return nil, "", ErrChatNotConfigured
			}
			return s.openai, model, nil
		default:
			return nil, "", models.NewValidationError(fmt.Sprintf("unsupported chat provider: %s", providerName), nil)
		}
	}

	var defaultProvider models.ChatProvider
	if s.config != nil {
		defaultProvider = s.config.Provider
	}
	switch defaultProvider {
	case models.ChatProviderOpenAI:
		if s.openai != nil {
			return s.openai, "", nil
		}
	case models.ChatProviderAnthropic:
		if s.anthropic != nil {
			return s.anthropic, "", nil
		}
	}

	// Fall through to whichever vendor is configured.
	if s.anthropic != nil {
		return s.anthropic, "", nil
	}
	if s.openai != nil {
		return s.openai, "", nil
	}
	return nil, "", ErrChatNotConfigured
}

func cacheKey(dataSourceID uint, question string) string {
	return fmt.Sprintf("ds:%d|%s", dataSourceID, question)
}

// Ask answers one question synchronously.
func (s *Service) Ask(ctx context.Context, userID string, projectID uint, req *models.DBChatRequest, requestID string) (*models.DBChatResponse, error) {
	ds, err := s.dataSources.Get(ctx, userID, projectID, req.DataSourceID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(ds.ID, req.Question)
	if cached, ok := s.cache.Get(ctx, key, requestID); ok {
		resp := *cached
		resp.Cached = true
		return &resp, nil
	}

	provider, modelOverride, err := s.resolveProvider(req.Model)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(ds, req)
	answer, model, err := provider.Complete(ctx, prompt, modelOverride, requestID)
	if err != nil {
		return nil, err
	}

	resp := &models.DBChatResponse{
		Answer:  answer,
		SQL:     extractSQL(answer),
		Dialect: ds.Kind,
		Model:   model,
	}
	s.cache.Set(ctx, key, resp, requestID)

	return resp, nil
}

type streamChunk struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`

	SQL     string            `json:"sql,omitempty"`
	Dialect models.EngineKind `json:"dialect,omitempty"`
	Model   string            `json:"model,omitempty"`
	Cached  bool              `json:"cached,omitempty"`
}

// AskStream answers one question over SSE. Cached answers are replayed as
// a single chunk.
func (s *Service) AskStream(c *fiber.Ctx, userID string, projectID uint, req *models.DBChatRequest, requestID string) error {
	ds, err := s.dataSources.Get(c.Context(), userID, projectID, req.DataSourceID)
	if err != nil {
		return err
	}

	provider, modelOverride, err := s.resolveProvider(req.Model)
	if err != nil {
		return err
	}

	key := cacheKey(ds.ID, req.Question)
	prompt := buildPrompt(ds, req)

	fasthttpCtx := c.Context()
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	fasthttpCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if cached, ok := s.cache.Get(context.Background(), key, requestID); ok {
			_ = writeChunk(w, streamChunk{Delta: cached.Answer})
			_ = writeChunk(w, streamChunk{Done: true, SQL: cached.SQL, Dialect: cached.Dialect, Model: cached.Model, Cached: true})
			finishStream(w, requestID)
			return
		}

		emit := func(delta string) error {
			select {
			case <-fasthttpCtx.Done():
				return fmt.Errorf("client disconnected")
			default:
			}
			return writeChunk(w, streamChunk{Delta: delta})
		}

		// The request context gets canceled too early for body stream
		// writers; client disconnects are watched through fasthttpCtx.
		answer, model, err := provider.StreamCompletion(context.Background(), prompt, modelOverride, requestID, emit)
		if err != nil {
			fiberlog.Errorf("[%s] chat stream failed: %v", requestID, err)
			_ = writeEvent(w, fiber.Map{"error": "chat provider stream failed"})
			finishStream(w, requestID)
			return
		}

		resp := &models.DBChatResponse{
			Answer:  answer,
			SQL:     extractSQL(answer),
			Dialect: ds.Kind,
			Model:   model,
		}
		s.cache.Set(context.Background(), key, resp, requestID)

		_ = writeChunk(w, streamChunk{Done: true, SQL: resp.SQL, Dialect: resp.Dialect, Model: resp.Model})
		finishStream(w, requestID)
	}))

	return nil
}

func writeChunk(w *bufio.Writer, chunk streamChunk) error {
	return writeEvent(w, chunk)
}

func writeEvent(w *bufio.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func finishStream(w *bufio.Writer, requestID string) {
	if _, err := w.WriteString("data: [DONE]\n\n"); err != nil {
		fiberlog.Debugf("[%s] failed to write stream terminator: %v", requestID, err)
		return
	}
	if err := w.Flush(); err != nil {
		fiberlog.Debugf("[%s] failed to flush stream terminator: %v", requestID, err)
	}
}

// Close releases provider caches and the response cache.
func (s *Service) Close() error {
	return s.cache.Close()
}
