package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"go.uber.org/zap"
)

func newEngine(tokens TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/who", AuthRequired(tokens), WithClaims(func(c *gin.Context, claims auth.Claims) {
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID, "username": claims.Username})
	}))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r
}

func serve(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := auth.NewTokenService([]byte("s3cret"), 24*time.Hour, nil)
	r := newEngine(tokens)

	tok, err := tokens.Issue(9, "bob")
	require.NoError(t, err)

	w := serve(r, "/who", "Bearer "+tok)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bob", body["username"])
	assert.EqualValues(t, 9, body["uid"])

	other, err := auth.NewTokenService([]byte("other"), 24*time.Hour, nil).Issue(9, "bob")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + tok,
		"garbage":      "Bearer x.y.z",
		"wrong secret": "Bearer " + other,
	} {
		w := serve(r, "/who", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.JSONEq(t, `{"code":40101,"message":"unauthorized"}`, w.Body.String(), name)
	}
}

func TestWithClaims_WithoutAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", WithClaims(func(c *gin.Context, claims auth.Claims) {
		c.Status(http.StatusOK)
	}))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/open", "").Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(auth.NewTokenService([]byte("s"), time.Hour, nil))

	w := serve(r, "/who", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 26)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := newEngine(auth.NewTokenService([]byte("s"), time.Hour, nil))
	w := serve(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":50000,"message":"internal error"}`, w.Body.String())
}
