package auth

import (
	"crypto/rand"
	stdErrors "errors"
	"fmt"
	"geochat/errors"
	"math/big"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their JSON name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type RegisterRequest struct {
	Name         string   `json:"name" validate:"max=150"`
	Email        string   `json:"email" validate:"required,email,max=254"`
	Mobile       string   `json:"mobile" validate:"max=20"`
	ProfileImage string   `json:"profile_image" validate:"max=255"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	Password     string   `json:"password" validate:"required,min=8,max=72"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// UpdateProfileRequest only touches the fields present in the body.
type UpdateProfileRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=150"`
	Mobile       *string  `json:"mobile" validate:"omitempty,max=20"`
	ProfileImage *string  `json:"profile_image" validate:"omitempty,max=255"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type PostMessageRequest struct {
	Message  string `json:"message" validate:"required"`
	SenderID *int64 `json:"sender_id"`
}

// Validate wraps every failure in errors.ErrValidation.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	return nil
}

// FieldErrors lists the failed rule of every invalid field, keyed by JSON name.
func FieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !stdErrors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// GenerateOTPCode returns a uniformly drawn 6 digit code in [100000, 999999].
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
