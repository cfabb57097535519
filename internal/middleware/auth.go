package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// AuthMiddleware validates HS256 bearer tokens issued by the archive's
// identity provider. The email claim is the identity key; the matching
// editor row is created on first sight.
type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	userRepo repos.UserRepo
}

func NewAuthMiddleware(baseLog *logger.Logger, secret string, userRepo repos.UserRepo) *AuthMiddleware {
	return &AuthMiddleware{
		log:      baseLog.With("Middleware", "AuthMiddleware"),
		secret:   []byte(secret),
		userRepo: userRepo,
	}
}

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil || !token.Valid {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing email claim"})
			return
		}

		user, err := am.userRepo.FindOrCreateByEmail(c.Request.Context(), nil, claims.Email, claims.Name)
		if err != nil {
			am.log.Error("resolve user", "email", claims.Email, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			return
		}

		c.Set("userEmail", user.Email)
		c.Set("userRole", user.Role)
		c.Next()
	}
}

// RequireRole gates an endpoint on the editor's role. Meant to run after
// RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("userRole")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
