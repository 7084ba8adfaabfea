package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
)

const actorContextKey = "actor"

// IdentityClaims - claims токена, выданного сервисом аккаунтов
type IdentityClaims struct {
	Role     models.Role `json:"role"`
	Approved bool        `json:"approved"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role:     actor.Role,
		Approved: actor.IsApproved,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// IdentityMiddleware - middleware, определяющий вызывающего по Bearer-токену.
// Запрос без токена продолжается как анонимный; неверный токен даёт 401.
func IdentityMiddleware(secret string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(actorContextKey, models.Anonymous)
			c.Next()
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			abortUnauthorized(c, "malformed authorization header")
			return
		}
		if secret == "" {
			log.Warn("Bearer token received but JWT_SECRET is not configured")
			abortUnauthorized(c, "token authentication is not configured")
			return
		}

		actor, err := parseActor(strings.TrimSpace(tokenStr), secret)
		if err != nil {
			log.WithError(err).Warn("Rejected bearer token")
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireIdentity rejects anonymous callers. It must run after IdentityMiddleware.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFromContext(c).Authenticated() {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

func parseActor(tokenStr, secret string) (models.Actor, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Anonymous, err
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Anonymous, err
	}
	if !claims.Role.Valid() {
		return models.Anonymous, jwt.ErrTokenInvalidClaims
	}
	return models.Actor{
		AccountID:  accountID,
		Role:       claims.Role,
		IsApproved: claims.Approved,
	}, nil
}

func actorFromContext(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Anonymous
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error: ErrorBody{Code: "unauthenticated", Message: message},
	})
}
