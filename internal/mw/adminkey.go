package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the shared key for operator routes.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey rejects requests whose AdminKeyHeader does not match key.
func RequireAdminKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AdminKeyHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin key required", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}
