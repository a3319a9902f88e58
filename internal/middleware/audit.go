package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/repository"
)

// Audit records an activity log entry after successful requests.
func Audit(repo *repository.UserRepository, action, entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			userID = &user.UserID
		}

		var entityID *string
		if id := c.Param("id"); id != "" {
			entityID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		_ = repo.CreateActivityLog(c.Request.Context(), &models.ActivityLog{
			UserID:      userID,
			Action:      action,
			EntityType:  entityType,
			EntityID:    entityID,
			Description: c.Request.Method + " " + c.FullPath(),
			NewValues:   body,
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
		})
	}
}
