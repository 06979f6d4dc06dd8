package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"desyn-backend/internal/middleware"
)

func TestRedactPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/projects":                            "/api/v1/projects",
		"/session?access_token=eyJhbGciOi.abc.def":    "/session?access_token=REDACTED",
		"/session?user=1&access_token=tok&mode=edit":  "/session?user=1&access_token=REDACTED&mode=edit",
		"/session?access%5Ftoken=tok":                 "/session?access%5Ftoken=REDACTED",
		"/session?access_token":                       "/session?access_token=REDACTED",
		"/session?token=keep&access_tokens=keep-this": "/session?token=keep&access_tokens=keep-this",
	}
	for in, want := range cases {
		assert.Equal(t, want, middleware.RedactPath(in), in)
	}
}

func TestRequestLogger_MasksQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	router := gin.New()
	router.Use(middleware.RequestLogger(&buf))
	router.GET("/api/v1/projects/:project_id/session", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/projects/p1/session?access_token=secret-jwt-value", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, "/api/v1/projects/p1/session?access_token=REDACTED")
	assert.NotContains(t, line, "secret-jwt-value")
	assert.Contains(t, line, "200")
}
