package models

// ChatProvider selects which LLM vendor answers database chat requests.
type ChatProvider string

const (
	ChatProviderAnthropic ChatProvider = "anthropic"
	ChatProviderOpenAI    ChatProvider = "openai"
)

type ChatConfig struct {
	Provider  ChatProvider        `yaml:"provider" json:"provider"`
	Anthropic *ChatProviderConfig `yaml:"anthropic,omitempty" json:"anthropic,omitempty"`
	OpenAI    *ChatProviderConfig `yaml:"openai,omitempty" json:"openai,omitempty"`
	Cache     *CacheConfig        `yaml:"cache,omitempty" json:"cache,omitempty"`
	MaxTokens int64               `yaml:"max_tokens,omitempty" json:"max_tokens,omitzero"`
}

type ChatProviderConfig struct {
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitzero"`
	Model   string `yaml:"model,omitempty" json:"model,omitzero"`
}

// DBChatRequest asks a natural-language question about a saved data
// source. The answer is grounded in the source's SQL dialect; the
// optional schema snippet is client-supplied DDL context.
type DBChatRequest struct {
	DataSourceID uint   `json:"data_source_id" validate:"required"`
	Question     string `json:"question" validate:"required"`
	Schema       string `json:"schema,omitempty"`
	Stream       bool   `json:"stream,omitempty"`

	// Model optionally overrides the configured model in
	// "provider:model" form, e.g. "openai:gpt-4o".
	Model string `json:"model,omitempty"`
}

type DBChatResponse struct {
	Answer  string     `json:"answer"`
	SQL     string     `json:"sql,omitempty"`
	Dialect EngineKind `json:"dialect"`
	Model   string     `json:"model,omitempty"`
	Cached  bool       `json:"cached"`
}
