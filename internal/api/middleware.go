package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tyrowin/chatrelay/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	claimsKey       = "claims"
)

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			ctx.Request.Header.Set(requestIDHeader, id)
		}
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}

// RequestLogger logs one line per request once it completes.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		log.Info("HTTP request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"latency", time.Since(start),
			"requestId", ctx.GetHeader(requestIDHeader),
		)
	}
}

// CORS sets permissive cross-origin headers on paths under prefix and answers
// preflight requests directly.
func CORS(prefix string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.HasPrefix(ctx.Request.URL.Path, prefix) {
			ctx.Next()
			return
		}

		header := ctx.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Request.Method == http.MethodOptions {
			if requested := ctx.GetHeader("Access-Control-Request-Headers"); requested != "" {
				header.Set("Access-Control-Allow-Headers", requested)
			}
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

// BearerAuth rejects requests without a valid session token and stores the
// verified claims on the context.
func BearerAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		scheme, token, found := strings.Cut(ctx.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		ctx.Set(claimsKey, claims)
		ctx.Next()
	}
}

func claimsFrom(ctx *gin.Context) *auth.Claims {
	claims, _ := ctx.MustGet(claimsKey).(*auth.Claims)
	return claims
}
