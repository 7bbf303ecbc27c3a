package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"github.com/suPer8Hu/ai-chatroom/internal/common"
)

const ClaimsKey = "auth_claims"

// TokenValidator is satisfied by *auth.TokenService.
type TokenValidator interface {
	Validate(token string) (auth.Claims, error)
}

// AuthRequired resolves the Authorization bearer header once per request.
// Any failure aborts with 401; there is no anonymous fallback.
func AuthRequired(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}
		claims, err := tokens.Validate(raw)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// WithClaims hands the claims resolved by AuthRequired to h as an argument.
func WithClaims(h func(c *gin.Context, claims auth.Claims)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ClaimsKey)
		claims, typed := v.(auth.Claims)
		if !ok || !typed {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}
		h(c, claims)
	}
}
