package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const accessTokenKey = "accessToken"

// AccessTokenMiddleware requires the access_token header carried by every
// /wallet route. Presence only; validity is the resolver's business.
func AccessTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("access_token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "access_token in the header request is required"})
			return
		}

		c.Set(accessTokenKey, token)
		c.Next()
	}
}
