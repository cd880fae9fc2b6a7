package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
)

// Audit attaches the caller's ip and user agent to the request context so
// services can stamp them on audit rows.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := models.WithClientInfo(c.Request.Context(), models.ClientInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
