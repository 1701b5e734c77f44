package auth

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/validation"
)

var messages = validation.Messages{
	"name":              "Name is required",
	"email":             "Please enter a valid email address",
	"password.required": "Password is required",
}

// SignUpRequest is the payload of POST /api/auth/sign-up/email.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *SignUpRequest) Bind(r *http.Request) error {
	return nil
}

// validate trims the name first so a blank one counts as missing.
func (a *SignUpRequest) validate(minLen, maxLen int) error {
	a.Name = strings.TrimSpace(a.Name)

	err := validation.Struct(a, messages)
	verr, _ := err.(*model.ValidationError)
	if err != nil && verr == nil {
		return err
	}

	if a.Password != "" {
		if msg := passwordLength(a.Password, minLen, maxLen); msg != "" {
			if verr == nil {
				verr = &model.ValidationError{}
			}
			verr.Fields = append(verr.Fields, model.FieldError{Field: "password", Message: msg})
		}
	}
	if verr != nil {
		return verr
	}

	return nil
}

func passwordLength(password string, minLen, maxLen int) string {
	n := utf8.RuneCountInString(password)
	switch {
	case n < minLen:
		return fmt.Sprintf("Password must be at least %d characters", minLen)
	case n > maxLen:
		return fmt.Sprintf("Password must be at most %d characters", maxLen)
	default:
		return ""
	}
}

// SignInRequest is the payload of POST /api/auth/sign-in/email.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *SignInRequest) Bind(r *http.Request) error {
	return nil
}

func (a *SignInRequest) validate() error {
	return validation.Struct(a, messages)
}
