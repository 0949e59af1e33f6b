package middleware

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/infrastructure/auth"
	"github.com/erp/stockrecon/internal/infrastructure/config"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scopeSeen struct {
	storeID    uuid.UUID
	ginStoreID string
	ctxStoreID string
	subject    string
	claims     *auth.Claims
}

func scopeRouter(cfg StoreScopeConfig, seen *scopeSeen) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), StoreScope(cfg))
	r.GET("/scoped", func(c *gin.Context) {
		seen.storeID, _ = GetStoreID(c)
		seen.ginStoreID = c.GetString(logger.GinStoreIDKey)
		seen.ctxStoreID = logger.GetStoreID(c.Request.Context())
		seen.subject = logger.GetSubject(c.Request.Context())
		seen.claims = GetClaims(c)
		c.Status(http.StatusOK)
	})
	return r
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestStoreScope_Token(t *testing.T) {
	verifier := auth.NewTokenVerifier(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "idp"})
	storeID := uuid.New()
	token, err := verifier.Issue(storeID, "clerk-9", time.Minute)
	require.NoError(t, err)

	var seen scopeSeen
	r := scopeRouter(StoreScopeConfig{Verifier: verifier, AllowHeader: true}, &seen)

	t.Run("claim sets scope", func(t *testing.T) {
		w := serve(r, "GET", "/scoped", map[string]string{AuthHeaderKey: BearerPrefix + token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, storeID, seen.storeID)
		assert.Equal(t, storeID.String(), seen.ginStoreID)
		assert.Equal(t, storeID.String(), seen.ctxStoreID)
		assert.Equal(t, "clerk-9", seen.subject)
		require.NotNil(t, seen.claims)
	})

	t.Run("matching header accepted", func(t *testing.T) {
		w := serve(r, "GET", "/scoped", map[string]string{
			AuthHeaderKey:  BearerPrefix + token,
			StoreHeaderKey: storeID.String(),
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("conflicting header forbidden", func(t *testing.T) {
		w := serve(r, "GET", "/scoped", map[string]string{
			AuthHeaderKey:  BearerPrefix + token,
			StoreHeaderKey: uuid.NewString(),
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w.Body.Bytes()))
	})

	t.Run("bad token", func(t *testing.T) {
		w := serve(r, "GET", "/scoped", map[string]string{AuthHeaderKey: BearerPrefix + "garbage"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w.Body.Bytes()))
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := verifier.Issue(storeID, "clerk-9", -2*time.Minute)
		require.NoError(t, err)
		w := serve(r, "GET", "/scoped", map[string]string{AuthHeaderKey: BearerPrefix + expired})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenExpired, errorCode(t, w.Body.Bytes()))
	})

	t.Run("basic scheme rejected", func(t *testing.T) {
		w := serve(r, "GET", "/scoped", map[string]string{AuthHeaderKey: "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStoreScope_Header(t *testing.T) {
	storeID := uuid.New()

	t.Run("header accepted when allowed", func(t *testing.T) {
		var seen scopeSeen
		r := scopeRouter(StoreScopeConfig{AllowHeader: true}, &seen)
		w := serve(r, "GET", "/scoped", map[string]string{StoreHeaderKey: storeID.String()})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, storeID, seen.storeID)
		assert.Empty(t, seen.subject)
		assert.Nil(t, seen.claims)
	})

	t.Run("header refused when not allowed", func(t *testing.T) {
		r := scopeRouter(StoreScopeConfig{AllowHeader: false}, &scopeSeen{})
		w := serve(r, "GET", "/scoped", map[string]string{StoreHeaderKey: storeID.String()})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := scopeRouter(StoreScopeConfig{AllowHeader: true}, &scopeSeen{})
		w := serve(r, "GET", "/scoped", map[string]string{StoreHeaderKey: "store-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeStoreRequired, errorCode(t, w.Body.Bytes()))
	})

	t.Run("nothing sent", func(t *testing.T) {
		r := scopeRouter(StoreScopeConfig{AllowHeader: true}, &scopeSeen{})
		w := serve(r, "GET", "/scoped", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w.Body.Bytes()))
	})
}
