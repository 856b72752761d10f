package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/response"
)

// RequireRole rejects requests whose verified role is not in roles. It must
// run after AuthMiddleware and only reads what that middleware attached.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			response.Error(c, apperr.NewUnauthenticated(apperr.CodeTokenMissing, "Authentication required"))
			return
		}
		if _, ok := allowed[principal.Role]; !ok {
			response.Error(c, apperr.NewForbidden("You don't have permission to access this resource"))
			return
		}
		c.Next()
	}
}
