// utils/auth.go
package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"agencydesk-backend/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionKey is the gin context key holding the request's session.
const SessionKey = "session"

// Claims are the JWT claims issued by the identity provider.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for s. Used by tooling and tests; sign-in
// itself happens at the identity provider.
func GenerateToken(secret string, s session.Session, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: s.Email,
		Name:  s.FullName,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies tokenString and returns the session it carries.
func ParseToken(secret, tokenString string) (session.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return session.Session{}, errors.New("invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return session.Session{}, errors.New("invalid token subject")
	}
	return session.Session{
		UserID:   id,
		Email:    claims.Email,
		FullName: claims.Name,
		Role:     claims.Role,
	}, nil
}

// AuthMiddleware builds the session from a bearer token. Websocket clients
// that cannot set headers pass the token as access_token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
			tokenString = tokenString[7:]
		}

		sess, err := ParseToken(secret, tokenString)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Set(SessionKey, sess)
		c.Next()
	}
}

// RequireAdmin rejects sessions without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).IsAdmin() {
			RespondWithError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// CurrentSession returns the request's session, or an anonymous one.
func CurrentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{}
}
