package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", append(handlers, func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id.Hex())
	})...)
	return r
}

func bearer(t *testing.T, userID primitive.ObjectID, role models.UserRole) string {
	t.Helper()
	token, err := utils.GenerateAccessToken(userID, string(role), testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newRouter(AuthRequired(testSecret))
	userID := primitive.NewObjectID()

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	w := do(r, bearer(t, userID, models.UserRoleUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.Hex(), w.Body.String())
}

func TestRoleGuards(t *testing.T) {
	r := newRouter(AuthRequired(testSecret), VolunteerRequired())

	assert.Equal(t, http.StatusForbidden, do(r, bearer(t, primitive.NewObjectID(), models.UserRoleUser)).Code)
	assert.Equal(t, http.StatusOK, do(r, bearer(t, primitive.NewObjectID(), models.UserRoleVolunteer)).Code)

	admin := newRouter(AuthRequired(testSecret), AdminRequired())
	assert.Equal(t, http.StatusForbidden, do(admin, bearer(t, primitive.NewObjectID(), models.UserRoleVolunteer)).Code)
	assert.Equal(t, http.StatusOK, do(admin, bearer(t, primitive.NewObjectID(), models.UserRoleAdmin)).Code)
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	r := newRouter(RequestIDMiddleware())

	w := do(r, "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
