package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/labstack/echo/v4"
)

func httpError(err error) error {
	msg := err.Error()
	var ue *service.UserError
	if errors.As(err, &ue) {
		msg = ue.Message
	}

	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrFeatureDisabled),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, service.ErrNotEligible):
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrAlreadyScheduled),
		errors.Is(err, service.ErrNoAvailability):
		return echo.NewHTTPError(http.StatusConflict, msg)
	case errors.Is(err, service.ErrLockTimeout):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "The booking system is busy, please try again in a moment.")
	default:
		return err
	}
}

func uintParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" id")
	}
	return uint(v), nil
}
