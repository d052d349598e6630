package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// kindValidation marks malformed input rejected before the controller runs.
const kindValidation booking.Kind = "VALIDATION"

// kindUnauthorized marks a request without a resolvable caller.
const kindUnauthorized booking.Kind = "UNAUTHORIZED"

// statusFor maps an error kind to an HTTP status code.
func statusFor(k booking.Kind) int {
	switch k {
	case booking.KindInvalidTimeRange, kindValidation:
		return http.StatusBadRequest
	case kindUnauthorized:
		return http.StatusUnauthorized
	case booking.KindFacilityUnavailable, booking.KindInvalidTransition,
		booking.KindAlreadyCancelled, booking.KindAlreadyCompleted, booking.KindPastBooking:
		return http.StatusConflict
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error", "kind"}. Internal errors are logged
// and their message is not exposed.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	kind := booking.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.ErrorContext(c.Request().Context(), "request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg, "kind": kind})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": kindValidation})
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		default:
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
