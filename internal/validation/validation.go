// Package validation runs struct tag rules and reports them as field errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Messages maps a json field name, optionally suffixed with "." and the
// failed tag, to the message shown to the user.
type Messages map[string]string

func (m Messages) get(fe validator.FieldError) string {
	if msg, ok := m[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := m[fe.Field()]; ok {
		return msg
	}
	if fe.Tag() == "required" {
		return fe.Field() + " is required"
	}

	return fe.Field() + " is invalid"
}

// Struct checks payload and returns a *model.ValidationError listing every
// failed field in declaration order.
func Struct(payload interface{}, messages Messages) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &model.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, model.FieldError{Field: fe.Field(), Message: messages.get(fe)})
	}

	return out
}
