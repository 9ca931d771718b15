package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/errors"
)

// ClaimsKey is the gin context key holding *jwt.Claims.
const ClaimsKey = "auth.claims"

// Auth requires a valid bearer token on every route except skipPaths
// prefixes. Browsers cannot set headers on EventSource or WebSocket
// requests, so an access_token query parameter is accepted as well.
func Auth(validator auth.TokenValidator, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c)
		if !ok {
			abort(c, errors.Unauthorized("missing bearer token"))
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			abort(c, errors.InvalidToken().WithCause(err))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireScope rejects tokens that do not grant scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c.Request.Context())
		if ok && !claims.HasScope(scope) {
			abort(c, errors.Forbidden("missing scope "+scope))
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
