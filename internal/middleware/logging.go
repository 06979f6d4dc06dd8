package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const redacted = "REDACTED"

// RequestLogger is gin's access log with the access_token query parameter
// masked, since WebSocket clients send their bearer token that way. A nil out
// writes to gin.DefaultWriter.
func RequestLogger(out io.Writer) gin.HandlerFunc {
	if out == nil {
		out = gin.DefaultWriter
	}
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    out,
		Formatter: formatRequest,
	})
}

func formatRequest(p gin.LogFormatterParams) string {
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		RedactPath(p.Path),
		p.ErrorMessage,
	)
}

// RedactPath masks the value of every access_token parameter in the query of
// path. Other parameters are left byte for byte.
func RedactPath(path string) string {
	base, query, ok := strings.Cut(path, "?")
	if !ok {
		return path
	}
	parts := strings.Split(query, "&")
	for i, part := range parts {
		key, _, _ := strings.Cut(part, "=")
		if name, err := url.QueryUnescape(key); err == nil && name == AccessTokenParam {
			parts[i] = key + "=" + redacted
		}
	}
	return base + "?" + strings.Join(parts, "&")
}
