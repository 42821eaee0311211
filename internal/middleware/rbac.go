package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/response"
)

// RequireInstructor admits instructors and admins.
func RequireInstructor() gin.HandlerFunc {
	return requireRole(response.ErrInstructorAccessOnly, model.RoleInstructor, model.RoleAdmin)
}

// RequireAdmin admits admins only.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(response.ErrAdminAccessOnly, model.RoleAdmin)
}

func requireRole(denied response.ErrCode, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, denied)
	}
}
