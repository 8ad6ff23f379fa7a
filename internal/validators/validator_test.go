package validators

import (
	"testing"

	"rescuelink/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, Register(v))
	return v
}

func TestObjectIDTag(t *testing.T) {
	v := newValidator(t)

	valid := models.SendMessageRequest{ChatID: primitive.NewObjectID().Hex(), Content: "hi"}
	assert.NoError(t, v.Struct(valid))

	invalid := models.SendMessageRequest{ChatID: "abc", Content: "hi"}
	err := v.Struct(invalid)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"chat_id": "Invalid ID format"}, Details(err))
}

func TestParticipantIDsDive(t *testing.T) {
	v := newValidator(t)

	req := models.CreateChatRequest{ParticipantIDs: []string{primitive.NewObjectID().Hex(), "nope"}}
	details := Details(v.Struct(req))
	assert.Equal(t, "Invalid ID format", details["participant_ids[1]"])

	empty := models.CreateChatRequest{}
	details = Details(v.Struct(empty))
	assert.Contains(t, details, "participant_ids")
}

func TestCoordinatesRange(t *testing.T) {
	v := newValidator(t)

	ok := models.RaiseSOSRequest{Coordinates: models.Coordinates{Latitude: 23.8, Longitude: 90.4}}
	assert.NoError(t, v.Struct(ok))

	bad := models.RaiseSOSRequest{Coordinates: models.Coordinates{Latitude: 91, Longitude: 90.4}}
	details := Details(v.Struct(bad))
	assert.Equal(t, "Invalid GPS coordinates", details["coordinates.latitude"])
	assert.NotContains(t, details, "coordinates.longitude")
}

func TestModeOneOf(t *testing.T) {
	v := newValidator(t)

	req := models.RaiseSOSRequest{Mode: "loud"}
	details := Details(v.Struct(req))
	assert.Equal(t, "mode must be one of: silent soft", details["mode"])
}

func TestDetailsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Details(assert.AnError))
}

func TestRegisterBindingsIdempotent(t *testing.T) {
	require.NoError(t, RegisterBindings())
	require.NoError(t, RegisterBindings())
}
