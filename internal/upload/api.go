package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 64 << 10

func (r *Result) Render(w http.ResponseWriter, req *http.Request) error {
	return nil
}

// Handler serves /upload. Routes expect an authenticated caller.
type Handler struct {
	uploader *Uploader
}

func NewHandler(u *Uploader) *Handler {
	return &Handler{uploader: u}
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Delete("/upload", h.Delete)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	res, err := h.uploader.FromRequest(w, r, "file")
	if err != nil {
		h.renderErr(w, r, err)

		return
	}

	if err := render.Render(w, r, res); err != nil {
		h.renderErr(w, r, err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uploader.Delete(r.Context(), r.URL.Query().Get("url")); err != nil {
		h.renderErr(w, r, err)

		return
	}

	render.NoContent(w, r)
}

// FromRequest uploads the multipart file in field. A missing field yields
// ErrNoFile.
func (u *Uploader) FromRequest(w http.ResponseWriter, r *http.Request, field string) (*Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+multipartOverhead)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, ErrTooLarge
		case errors.Is(err, http.ErrMissingFile):
			return nil, ErrNoFile
		default:
			return nil, fmt.Errorf("%w: %v", ErrNoFile, err)
		}
	}
	defer file.Close()

	if header.Size > u.maxBytes {
		return nil, ErrTooLarge
	}

	return u.Upload(r.Context(), file, header.Filename)
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	var rd render.Renderer
	switch {
	case errors.Is(err, ErrNoFile):
		rd = errresponse.ErrBadRequest("No file uploaded")
	case errors.Is(err, ErrNotImage):
		rd = errresponse.ErrBadRequest("Only image files are allowed")
	case errors.Is(err, ErrTooLarge):
		rd = errresponse.ErrBadRequest(fmt.Sprintf("File size must be less than %d MB", h.uploader.maxBytes>>20))
	case errors.Is(err, ErrUnknownImage):
		rd = errresponse.ErrBadRequest("Unknown image URL")
	default:
		rd = errresponse.ErrBadGateway(err, "Error uploading image")
	}

	if err := render.Render(w, r, rd); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}
