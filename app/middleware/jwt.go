package middleware

import (
	"net/http"
	"strings"

	"downpour/app/auth"
	"downpour/app/config"

	"github.com/gin-gonic/gin"
)

// JWTAuth rejects requests without a valid bearer token.
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	jwtService := auth.NewJWTService(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Authorization header format must be Bearer {token}",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Invalid token: " + err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// ValidateWSToken checks a token passed through the query string. Browsers
// cannot set headers on websocket dials, so the upgrade endpoint takes the
// token out of band.
func ValidateWSToken(cfg *config.Config, token string) (*auth.Claims, error) {
	return auth.NewJWTService(cfg).ValidateToken(token)
}
