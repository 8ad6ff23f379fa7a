package handlers

import (
	"net/http"

	"rescuelink/internal/middleware"
	"rescuelink/internal/models"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/internal/validators"
	"rescuelink/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	if err := validators.RegisterBindings(); err != nil {
		panic(err)
	}
}

// bindJSON decodes the request body, answering 400 with field details when
// validation fails.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if details := validators.Details(err); details != nil {
			utils.ValidationErrorResponse(c, details)
			return false
		}
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// respondServiceError maps a service error kind onto an HTTP status. Internal
// causes are logged and never sent to the client.
func respondServiceError(c *gin.Context, log *logger.Logger, err error) {
	switch services.KindOf(err) {
	case services.KindNotFound:
		utils.NotFoundResponse(c, err.Error())
	case services.KindForbidden:
		utils.ForbiddenResponse(c, err.Error())
	case services.KindConflict:
		utils.ErrorResponse(c, http.StatusBadRequest, "CONFLICT", err.Error())
	case services.KindInvalidState:
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_STATE", err.Error())
	case services.KindValidation:
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		log.WithContext(c.Request.Context()).
			WithError(err).
			WithField("path", c.FullPath()).
			Error("Request failed")
		utils.InternalServerErrorResponse(c)
	}
}

// currentUser reads the authenticated identity, answering 401 when absent.
func currentUser(c *gin.Context) (primitive.ObjectID, models.UserRole, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, "", false
	}
	role, _ := middleware.GetUserRole(c)
	return userID, role, true
}

func paramObjectID(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+label)
		return primitive.NilObjectID, false
	}
	return id, true
}
