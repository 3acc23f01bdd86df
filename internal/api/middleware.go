package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ralnuaimi/petty-cash-server/internal/models"
)

// identityKey is the gin context key the decoded bearer credential is
// stored under.
const identityKey = "identity"

// AuthMiddleware returns a Gin middleware that verifies the bearer
// credential and attaches the decoded identity to the request context.
// A missing or malformed header is 401; a credential that fails
// verification (bad signature, expired) is 403.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:  "error",
				Code:    "UNAUTHENTICATED",
				Message: "Authentication required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:  "error",
				Code:    "UNAUTHENTICATED",
				Message: "Invalid token format",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]

		jwtSecret := c.MustGet("jwtSecret").([]byte)
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return jwtSecret, nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Invalid token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Invalid token claims",
			})
			c.Abort()
			return
		}

		identity, ok := identityFromClaims(claims)
		if !ok {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Invalid identity in token",
			})
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFromClaims(claims jwt.MapClaims) (models.Identity, bool) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return models.Identity{}, false
	}
	role, ok := claims["role"].(string)
	if !ok || !models.ValidRole(role) {
		return models.Identity{}, false
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return models.Identity{
		ID:    sub,
		Name:  name,
		Email: email,
		Role:  role,
	}, true
}

// currentIdentity returns the identity set by AuthMiddleware.
func currentIdentity(c *gin.Context) models.Identity {
	return c.MustGet(identityKey).(models.Identity)
}
