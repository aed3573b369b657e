package middleware

import (
	"strings"

	"github.com/datadeck-io/datadeck-api/internal/services/auth"

	"github.com/gofiber/fiber/v2"
)

type AuthMiddleware struct {
	clerkProvider *auth.ClerkAuthProvider
	config        *AuthMiddlewareConfig
}

type AuthMiddlewareConfig struct {
	Enabled bool
	// ClerkSecretKey enables Bearer-token session verification. When
	// empty, identity comes from the trusted-proxy header instead
	// (self-hosted deployments behind their own auth layer).
	ClerkSecretKey     string
	TrustedProxyHeader string
	HeaderNames        []string
	SkipPaths          []string
}

func DefaultAuthMiddlewareConfig() *AuthMiddlewareConfig {
	return &AuthMiddlewareConfig{
		Enabled:            true,
		TrustedProxyHeader: "X-Forwarded-User",
		HeaderNames:        []string{"Authorization"},
		SkipPaths: []string{
			"/health",
			"/webhooks",
		},
	}
}

func NewAuthMiddleware(clerkProvider *auth.ClerkAuthProvider, config *AuthMiddlewareConfig) *AuthMiddleware {
	if config == nil {
		config = DefaultAuthMiddlewareConfig()
	}
	if len(config.HeaderNames) == 0 {
		config.HeaderNames = []string{"Authorization"}
	}
	if config.TrustedProxyHeader == "" {
		config.TrustedProxyHeader = "X-Forwarded-User"
	}
	return &AuthMiddleware{
		clerkProvider: clerkProvider,
		config:        config,
	}
}

// RequireAuth rejects requests without a resolvable identity before any
// handler - and therefore before any probe - runs.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.config.Enabled || m.shouldSkipPath(c.Path()) {
			return c.Next()
		}

		if m.clerkProvider != nil && m.config.ClerkSecretKey != "" {
			token := m.extractToken(c)
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authentication required",
				})
			}

			claims, err := m.clerkProvider.ValidateToken(c.Context(), token)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			c.Locals("auth_context", &auth.AuthContext{
				UserID: claims.Subject,
				Claims: claims,
			})
			return c.Next()
		}

		// Self-hosted path: an upstream reverse proxy has already
		// authenticated the user.
		userID := strings.TrimSpace(c.Get(m.config.TrustedProxyHeader))
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		c.Locals("auth_context", &auth.AuthContext{UserID: userID})
		return c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	for _, headerName := range m.config.HeaderNames {
		if header := c.Get(headerName); header != "" {
			if after, ok := strings.CutPrefix(header, "Bearer "); ok {
				return after
			}
			return strings.TrimSpace(header)
		}
	}

	return ""
}

func (m *AuthMiddleware) shouldSkipPath(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}
