package middleware

import (
	"net/http"
	"strings"

	"rescuelink/internal/models"
	"rescuelink/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// AuthRequired validates the bearer token and sets the caller identity.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// AdminRequired middleware ensures user is an admin
func AdminRequired() gin.HandlerFunc {
	return requireRole(models.UserRoleAdmin, "Admin access required")
}

// VolunteerRequired middleware ensures user is a volunteer
func VolunteerRequired() gin.HandlerFunc {
	return requireRole(models.UserRoleVolunteer, "Volunteer access required")
}

func requireRole(role models.UserRole, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := GetUserRole(c)
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		if userRole != role {
			utils.ForbiddenResponse(c, message)
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

func GetUserRole(c *gin.Context) (models.UserRole, bool) {
	v, exists := c.Get(ContextUserRole)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return models.UserRole(role), ok
}
