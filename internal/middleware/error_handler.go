package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CustomErrorHandler creates a custom error handler for Echo. Every
// unhandled error is folded into the JSON envelope; nothing leaks a
// stack trace or an HTML page to API callers.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	errorMessage := ""

	// Check if it's an Echo HTTPError
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code

		if msg, ok := he.Message.(string); ok && msg != "" {
			errorMessage = msg
		}

		if errorMessage == "" {
			switch code {
			case http.StatusNotFound:
				errorMessage = "The requested resource doesn't exist."
			case http.StatusForbidden:
				errorMessage = "You don't have permission to access this resource."
			case http.StatusUnauthorized:
				errorMessage = "Authentication required."
			case http.StatusBadRequest:
				errorMessage = "The request could not be processed."
			default:
				errorMessage = "Something went wrong. Please try again later."
			}
		}
	} else {
		// Non-HTTPError, use default
		errorMessage = "Something went wrong. Please try again later."
	}

	// Log the error
	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, ErrorResponse{Success: false, Error: errorMessage}); err != nil {
		c.Logger().Error(err)
	}
}
