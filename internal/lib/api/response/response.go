package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

type Response struct {
	Status int             `json:"status"`
	Error  string          `json:"error,omitempty"`
	Kind   model.ErrorKind `json:"kind,omitempty"`
}

const (
	StatusOK = 200
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string, status int) Response {
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return Response{
		Status: status,
		Error:  msg,
	}
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindAlreadyActive:
		return http.StatusConflict
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindInfeasible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the response for err. Internal failures keep their details out of the body.
func FromError(err error) Response {
	kind := model.KindOf(err)
	status := StatusFor(kind)

	if status == http.StatusInternalServerError {
		return Response{Status: status, Error: "internal error", Kind: kind}
	}

	msg := err.Error()

	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		msg = domainErr.Error()
	}

	return Response{Status: status, Error: msg, Kind: kind}
}

// Render writes resp with its status code.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	render.Status(r, resp.Status)
	render.JSON(w, r, resp)
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required", err.Field()))
		case "gt", "gte", "min":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "lt", "lte", "max":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be below %s", err.Field(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is invalid", err.Field()))
		}
	}

	return Response{
		Status: http.StatusBadRequest,
		Error:  strings.Join(errMsgs, ", "),
		Kind:   model.KindInvalidInput,
	}
}
