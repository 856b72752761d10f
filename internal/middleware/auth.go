package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/response"
	"github.com/harentsoaR/clinic-api/internal/services"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to a verified principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

// AuthMiddleware verifies the bearer token on every request and attaches the
// freshly loaded account and profile for downstream handlers.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		// Set user info in the context for handlers to use
		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.NewUnauthenticated(apperr.CodeTokenMissing, "Authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperr.NewUnauthenticated(apperr.CodeTokenInvalid, "Authorization header must be 'Bearer <token>'")
	}
	return token, nil
}

// CurrentPrincipal returns the principal attached by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (*services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*services.Principal)
	return p, ok && p != nil
}
