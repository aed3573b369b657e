package utils

import (
	"fmt"
	"strings"
)

// ParseProviderModel splits a "provider:model" override, e.g.
// "openai:gpt-4o" or "anthropic:claude-sonnet-4-20250514". Both halves
// must be non-empty and exactly one colon is allowed.
func ParseProviderModel(override string) (provider, model string, err error) {
	trimmed := strings.TrimSpace(override)
	if trimmed == "" {
		return "", "", fmt.Errorf("model override cannot be empty")
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("model override must be 'provider:model', got %q", override)
	}

	provider = strings.TrimSpace(parts[0])
	model = strings.TrimSpace(parts[1])
	if provider == "" {
		return "", "", fmt.Errorf("empty provider in model override %q", override)
	}
	if model == "" {
		return "", "", fmt.Errorf("empty model in model override %q", override)
	}

	return provider, model, nil
}
