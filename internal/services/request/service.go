package request

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// localsKey caches the resolved ID on the fiber context so repeated
	// lookups within one request agree.
	localsKey = "request_id"
	// maxIDLength caps client-supplied request IDs
	maxIDLength = 256
)

// ID resolves the request ID for the current request. A client-supplied
// X-Request-ID header wins; otherwise a fresh ID is generated. The result
// is cached in fiber locals so every log line and response for this
// request carries the same ID.
func ID(c *fiber.Ctx) string {
	if cached := c.Locals(localsKey); cached != nil {
		if str, ok := cached.(string); ok && str != "" {
			return str
		}
	}

	id := sanitize(c.Get("X-Request-ID"))
	if id == "" {
		id = NewID()
	}

	c.Locals(localsKey, id)
	return id
}

// NewID creates a random request ID of the form "req_<hex>".
func NewID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}

func sanitize(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	return id
}
