// Package errresponse renders every API error as JSON.
package errresponse

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string             `json:"status"`            // user-level status message
	Message    string             `json:"message,omitempty"` // human readable detail
	Field      string             `json:"field,omitempty"`   // first offending field
	Errors     []model.FieldError `json:"errors,omitempty"`
	ErrorText  string             `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if e.HTTPStatusCode >= http.StatusInternalServerError && e.Err != nil {
		logging.FromContext(r.Context()).Errorw(e.StatusText, "error", e.Err)
	}
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrBadRequest is a 400 with a fixed message.
func ErrBadRequest(message string) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Bad request",
		Message:        message,
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(verr *model.ValidationError) render.Renderer {
	resp := &ErrResponse{
		Err:            verr,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Validation failed",
		Errors:         verr.Fields,
	}
	if first, ok := verr.First(); ok {
		resp.Message = first.Message
		resp.Field = first.Field
	}

	return resp
}

func ErrBadGateway(err error, message string) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadGateway,
		StatusText:     "Bad gateway",
		Message:        message,
	}
}

func ErrInternal(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error",
		Message:        "Something went wrong",
	}
}

var (
	ErrNotFound         = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
	ErrUnauthorized     = &ErrResponse{HTTPStatusCode: http.StatusUnauthorized, StatusText: "Unauthorized"}
	ErrForbidden        = &ErrResponse{HTTPStatusCode: http.StatusForbidden, StatusText: "Forbidden", Message: "You do not have permission to access this resource"}
	ErrMethodNotAllowed = &ErrResponse{HTTPStatusCode: http.StatusMethodNotAllowed, StatusText: "Method not allowed"}
	ErrTooManyRequests  = &ErrResponse{HTTPStatusCode: http.StatusTooManyRequests, StatusText: "Too many requests", Message: "Too many requests, please try again later"}
	ErrInvalidArticleID = &ErrResponse{HTTPStatusCode: http.StatusBadRequest, StatusText: "Bad request", Message: "Invalid article ID format"}
	ErrArticleNotFound  = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found.", Message: "Article not found"}
	ErrConflict         = &ErrResponse{HTTPStatusCode: http.StatusConflict, StatusText: "Conflict", Message: "User already exists"}
)

// FromError maps a domain error to its response.
func FromError(err error) render.Renderer {
	var verr *model.ValidationError

	switch {
	case errors.As(err, &verr):
		return ErrValidation(verr)
	case errors.Is(err, model.ErrInvalidID):
		return ErrInvalidArticleID
	case errors.Is(err, model.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, model.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, model.ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, model.ErrConflict):
		return ErrConflict
	default:
		return ErrInternal(err)
	}
}
