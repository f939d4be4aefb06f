package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/model"
)

// Codes used by the REST layer in addition to the model codes.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeServerError     = "SERVER_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
)

// Envelope is the body of every error response.
type Envelope struct {
	Status int           `json:"status"`
	Errors []model.Error `json:"errors"`
}

var statusByCode = map[string]int{
	model.CodeBadID: http.StatusNotFound,
}

// MapError converts err into an envelope. Model errors take their status
// from the first error's code, defaulting to 400. Any other error becomes
// a 500 with domain false, and its text is not exposed.
func MapError(err error) (env Envelope, domain bool) {
	if errs, ok := model.AsErrors(err); ok {
		status, found := statusByCode[errs[0].Code]
		if !found {
			status = http.StatusBadRequest
		}
		return Envelope{Status: status, Errors: errs}, true
	}
	return Envelope{
		Status: http.StatusInternalServerError,
		Errors: []model.Error{{Code: CodeServerError, Message: "internal server error"}},
	}, false
}

// NotFound is the envelope for requests no route matched.
func NotFound(method, uri string) Envelope {
	return Envelope{
		Status: http.StatusNotFound,
		Errors: []model.Error{{Code: CodeNotFound, Message: fmt.Sprintf("%s not supported for %s", method, uri)}},
	}
}

// WriteError writes err as an envelope, logging errors that are not
// model errors.
func WriteError(c echo.Context, err error) error {
	env, domain := MapError(err)
	if !domain {
		c.Logger().Errorf("server error: %v", err)
	}
	return c.JSON(env.Status, env)
}

func envelope(status int, code, msg, name string) Envelope {
	return Envelope{Status: status, Errors: []model.Error{{Code: code, Message: msg, Name: name}}}
}
