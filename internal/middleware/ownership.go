package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

// TeacherOwnerResolver maps the teacher profile addressed by the :id path
// parameter to the user account that owns it.
type TeacherOwnerResolver interface {
	OwnerUserID(ctx context.Context, teacherID string) (string, error)
}

// TeacherSelf allows admins through and requires other callers to own the
// teacher profile addressed by the :id path parameter.
func TeacherSelf(resolver TeacherOwnerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if claims.Role == models.RoleAdmin {
			c.Next()
			return
		}

		ownerID, err := resolver.OwnerUserID(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if ownerID != claims.UserID {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
