package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"

	"workmesh/backend/internal/faults"
)

// generateJWT mints a credential bound to a marketplace user id.
func generateJWT(userID, secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
		"iss":     "workmesh-messaging",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken parses a credential and returns the user id it names.
func validateToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &faults.AuthError{Reason: "unexpected signing method"}
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", &faults.AuthError{Reason: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", &faults.AuthError{Reason: "malformed claims"}
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", &faults.AuthError{Reason: "credential names no user"}
	}
	return userID, nil
}

// GetToken mints a credential for a user id. In production this sits behind
// the marketplace's own login; it is exposed directly for local development.
func (h *Handler) GetToken(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	token, err := generateJWT(userID, h.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": userID})
}

// authRequired guards the fallback endpoints. They accept the credential as a
// bearer header or, mirroring the handshake, a token query parameter.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "credential missing"})
			return
		}

		userID, err := validateToken(tokenString, h.Cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
