package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JovSele/patentapi/internal/patent"
)

// ClearCache drops one cached entry, or the whole cache when no patent is
// named. The route does not exist in production.
func (s *Server) ClearCache(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}
	if s.cacheRepo == nil || s.db == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	target := strings.TrimSpace(c.Query("patent"))
	if target != "" {
		id, err := patent.Normalize(target)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		target = id.String()
	}

	deleted, err := s.cacheRepo.Clear(c.Request.Context(), s.db, target)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
