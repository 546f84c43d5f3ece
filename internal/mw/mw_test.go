package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/ping", nil).Code)
}

func TestRequireAdminKey(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		header   string
		expected int
	}{
		{"matching key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "s3cret", "guess", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"unconfigured key", "", "", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/admin", RequireAdminKey(tc.key), func(c *gin.Context) { c.Status(http.StatusOK) })

			header := http.Header{}
			if tc.header != "" {
				header.Set(AdminKeyHeader, tc.header)
			}
			assert.Equal(t, tc.expected, serve(r, "POST", "/admin", header).Code)
		})
	}
}
