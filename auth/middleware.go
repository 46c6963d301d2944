package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"forum/common"
)

const identityKey = "identity"

// Authenticate verifies the bearer token and stores the caller's Identity.
func Authenticate(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			common.RespondError(c, common.Unauthorized("Unauthorized: No token provided"))
			return
		}

		id, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			common.RespondError(c, common.Unauthorized("Unauthorized: Invalid token"))
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireToken runs Authenticate on every path outside the public prefixes.
func RequireToken(tokens *Tokens, publicPrefixes ...string) gin.HandlerFunc {
	authenticate := Authenticate(tokens)
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path, publicPrefixes) {
			c.Next()
			return
		}
		authenticate(c)
	}
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// CurrentIdentity returns the identity attached by Authenticate.
func CurrentIdentity(c *gin.Context) (*Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

// MustIdentity is CurrentIdentity for handlers mounted behind Authenticate;
// a missing identity is reported as Unauthorized.
func MustIdentity(c *gin.Context) (*Identity, error) {
	id, ok := CurrentIdentity(c)
	if !ok {
		return nil, common.Unauthorized("Unauthorized: No token provided")
	}
	return id, nil
}
