// Package middleware provides HTTP middleware for the API servers.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

const (
	headerAPIKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "
)

// APIKeyAuth validates requests against a set of configured API keys.
// With no keys configured every request is rejected.
type APIKeyAuth struct {
	apiKeys []string
}

// NewAPIKeyAuth creates API key middleware from the configured key list.
// Empty keys are dropped.
func NewAPIKeyAuth(apiKeys []string) *APIKeyAuth {
	keys := make([]string, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return &APIKeyAuth{apiKeys: keys}
}

// Handler returns a gin middleware that checks the X-API-Key header, then
// Authorization: Bearer, and aborts with 401 when neither carries a valid
// key.
func (a *APIKeyAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)
		if !a.isValidAPIKey(apiKey) {
			logger.Log.Warn("Unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("clientIp", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if apiKey := c.GetHeader(headerAPIKey); apiKey != "" {
		return apiKey
	}
	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return ""
}

// isValidAPIKey compares in constant time to avoid leaking key prefixes.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" || len(a.apiKeys) == 0 {
		return false
	}
	for _, validKey := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}
