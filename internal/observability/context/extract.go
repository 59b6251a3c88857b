package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func TierFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if ctx := c.Request.Context(); ctx != nil {
		if value := TierFromContext(ctx); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(c.GetString("tier")); value != "" {
		return value
	}
	return ""
}
