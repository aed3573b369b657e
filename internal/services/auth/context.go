package auth

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/gofiber/fiber/v2"
)

// AuthContext carries the authenticated caller through fiber locals.
// DataDeck authenticates dashboard sessions only; there is no API-key
// surface.
type AuthContext struct {
	UserID string
	Claims *clerk.SessionClaims
}

func GetAuthContext(c *fiber.Ctx) *AuthContext {
	authCtx, ok := c.Locals("auth_context").(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

func GetUserID(c *fiber.Ctx) (string, bool) {
	authCtx := GetAuthContext(c)
	if authCtx == nil {
		return "", false
	}
	return authCtx.UserID, authCtx.UserID != ""
}

func GetClerkClaims(c *fiber.Ctx) (*clerk.SessionClaims, bool) {
	authCtx := GetAuthContext(c)
	if authCtx == nil || authCtx.Claims == nil {
		return nil, false
	}
	return authCtx.Claims, true
}
