package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/financial-coach-api/internal/models"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
	"github.com/noah-isme/financial-coach-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// AccessTokenParser validates bearer access tokens.
type AccessTokenParser interface {
	ParseAccessToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid, unexpired access token. Trust
// comes from the signature alone; no database lookup is made.
func JWT(parser AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := parser.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			message := "invalid access token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "access token expired"
			}
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, message))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
