package http

import (
	"net/http"

	"github.com/go-chi/render"
)

type Response struct {
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, res *Response) {
	render.Status(r, status)
	render.JSON(w, r, res)
}

func JSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, &Response{Message: message})
}

func JSONValidationError(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	JSON(w, r, http.StatusUnprocessableEntity, &Response{
		Message: "validation failed",
		Errors:  errs,
	})
}
