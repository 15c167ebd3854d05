package middlewares

import (
	"net/http"

	"crms/src/types"

	"github.com/gin-gonic/gin"
)

// RequireRole guards staff-only routes. AuthMiddleware must run first so
// the role is on the context.
func RequireRole(roles ...types.UserRole) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := types.UserRole(ctx.GetString("role"))
		for _, allowed := range roles {
			if role == allowed {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not enough permissions to perform this action"})
	}
}
