package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"rescuelink/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterBindings installs the custom tags on gin's request validator. It is
// safe to call more than once.
func RegisterBindings() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		registerErr = Register(v)
	})
	return registerErr
}

// Register adds object_id and the coordinate range check to v and reports
// fields by their JSON names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("object_id", validateObjectID); err != nil {
		return fmt.Errorf("register object_id: %w", err)
	}
	v.RegisterStructValidation(validateCoordinates, models.Coordinates{})
	return nil
}

// Details flattens a binding error into field messages. It returns nil when
// err is not a validation failure, e.g. malformed JSON.
func Details(err error) map[string]string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil
	}

	details := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fieldPath(fe)] = errorMessage(fe)
	}
	return details
}

func fieldPath(fe validator.FieldError) string {
	// Namespace is "RaiseSOSRequest.coordinates.latitude"; drop the type name
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "object_id":
		return "Invalid ID format"
	case "coordinates":
		return "Invalid GPS coordinates"
	default:
		return fmt.Sprintf("Validation failed for %s", fe.Field())
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	return primitive.IsValidObjectID(value)
}

func validateCoordinates(sl validator.StructLevel) {
	coords, ok := sl.Current().Interface().(models.Coordinates)
	if !ok || coords.Valid() {
		return
	}
	if coords.Latitude < -90 || coords.Latitude > 90 {
		sl.ReportError(coords.Latitude, "latitude", "Latitude", "coordinates", "")
	}
	if coords.Longitude < -180 || coords.Longitude > 180 {
		sl.ReportError(coords.Longitude, "longitude", "Longitude", "coordinates", "")
	}
}
