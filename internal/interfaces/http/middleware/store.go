package middleware

import (
	"errors"
	"strings"

	"github.com/erp/stockrecon/internal/infrastructure/auth"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store scope context keys and headers
const (
	StoreIDKey     = "store_uuid"
	ClaimsKey      = "jwt_claims"
	StoreHeaderKey = "X-Store-ID"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// StoreScopeConfig holds configuration for the store scope middleware
type StoreScopeConfig struct {
	// Verifier validates bearer tokens. When nil, only the header is read.
	Verifier TokenVerifier
	// AllowHeader accepts X-Store-ID from callers without a bearer token
	AllowHeader bool
	Logger      *zap.Logger
}

// StoreScope resolves the store every request operates on. A bearer token's
// store_id claim wins; X-Store-ID is accepted when no token is sent and
// AllowHeader is set. A header that disagrees with the token is rejected.
func StoreScope(cfg StoreScopeConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		var (
			storeID uuid.UUID
			subject string
		)
		header := strings.TrimSpace(c.GetHeader(StoreHeaderKey))

		if authHeader := c.GetHeader(AuthHeaderKey); authHeader != "" && cfg.Verifier != nil {
			tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
			if !ok || tokenString == "" {
				abortScope(c, dto.ErrCodeTokenInvalid, "Invalid authorization header format")
				return
			}
			claims, err := cfg.Verifier.Verify(tokenString)
			if err != nil {
				log.Warn("Token rejected",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(logger.GinRequestIDKey)),
				)
				abortTokenError(c, err)
				return
			}
			storeID, _ = claims.StoreUUID()
			subject = claims.Subject
			if header != "" && header != storeID.String() {
				abortScope(c, dto.ErrCodeForbidden, "Token is not scoped to the requested store")
				return
			}
			c.Set(ClaimsKey, claims)
		} else {
			if header == "" || !cfg.AllowHeader {
				abortScope(c, dto.ErrCodeUnauthorized, "Store scope required")
				return
			}
			id, err := uuid.Parse(header)
			if err != nil || id == uuid.Nil {
				abortScope(c, dto.ErrCodeStoreRequired, "Invalid X-Store-ID header")
				return
			}
			storeID = id
		}

		c.Set(StoreIDKey, storeID)
		c.Set(logger.GinStoreIDKey, storeID.String())

		ctx := c.Request.Context()
		ctx, l := logger.WithStoreID(ctx, logger.FromContext(ctx), storeID.String())
		if subject != "" {
			ctx, _ = logger.WithSubject(ctx, l, subject)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		abortScope(c, dto.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrMissingStoreID):
		abortScope(c, dto.ErrCodeTokenInvalid, "Token carries no store")
	default:
		abortScope(c, dto.ErrCodeTokenInvalid, "Invalid token")
	}
}

func abortScope(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(logger.GinRequestIDKey)))
}

// GetStoreID returns the store resolved by StoreScope
func GetStoreID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(StoreIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetClaims returns the verified token claims, if the request carried a token
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// compile-time check
var _ TokenVerifier = (*auth.TokenVerifier)(nil)

