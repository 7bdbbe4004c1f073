package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes data as-is with the given status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, data)
}

// ListResponse writes {success:true, results:[...]}.
func ListResponse(c echo.Context, rows interface{}) error {
	return DataResponse(c, http.StatusOK, &ListBody{Success: true, Results: rows})
}

// ErrorResponse writes {success:false, error}.
func ErrorResponse(c echo.Context, statusCode int, message, kind string) error {
	return DataResponse(c, statusCode, &ErrorBody{Error: message, Kind: kind})
}

// BadRequestResponse writes a 400 carrying validation details.
func BadRequestResponse(c echo.Context, details []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, &ErrorBody{
		Error:   "invalid request",
		Kind:    "validation_failure",
		Details: details,
	})
}

// UnauthorizedResponse writes the fixed 401 body.
func UnauthorizedResponse(c echo.Context) error {
	return ErrorResponse(c, http.StatusUnauthorized, "unauthorized", "")
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return ErrorResponse(c, http.StatusInternalServerError, "Something went wrong", "")
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorResponse(c, appErr.Status, appErr.Message, appErr.Code)
	}
	return InternalServerErrorResponse(c)
}
