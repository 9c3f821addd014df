package middleware

import (
	"net/http"

	"github.com/issb-portal/registration-service/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders uncaught errors as the same dto.ErrorResponse shape
// the handlers use, so clients see one error format across the API.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
