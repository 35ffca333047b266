package handlers

import (
	"errors"
	"net/http"

	"auction-system/internal/domain"

	"github.com/labstack/echo/v4"
)

// Response is the envelope of every REST reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Payload interface{} `json:"payload,omitempty"`
}

const tryAgainMessage = "Something went wrong, please try again"

func ok(c echo.Context, status int, message string, payload interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Payload: payload})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// statusForRejection maps a rejection reason to its HTTP status.
func statusForRejection(reason domain.RejectReason) int {
	switch reason {
	case domain.ReasonSessionEnded:
		return http.StatusConflict
	case domain.ReasonNotOwner:
		return http.StatusForbidden
	case domain.ReasonNotFound, domain.ReasonUnknownSession:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeError answers a failed operation. Rejections carry their own message;
// anything else is reported as a generic retryable failure.
func writeError(c echo.Context, err error) error {
	if rejection, isRejection := domain.AsRejection(err); isRejection {
		return fail(c, statusForRejection(rejection.Reason), rejection.Message())
	}
	if errors.Is(err, domain.ErrSessionExists) {
		return fail(c, http.StatusConflict, "Session already exists")
	}
	return fail(c, http.StatusInternalServerError, tryAgainMessage)
}
