package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/labstack/echo/v4"
)

type SelfService interface {
	Lookup(ctx context.Context, eventID uint, code, secret string) (*models.Order, error)
	Options(ctx context.Context, eventID uint, code, secret string) (*service.Eligibility, error)
	Book(ctx context.Context, eventID uint, code, secret string, subEventID uint) (*models.Order, error)
}

// SecretHeader carries the order or position secret on GET requests.
const SecretHeader = "X-Order-Secret"

type SelfServiceHandler struct {
	svc SelfService
}

func NewSelfServiceHandler(svc SelfService) *SelfServiceHandler {
	return &SelfServiceHandler{svc: svc}
}

func (h *SelfServiceHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/events/:event/2nd")
	g.POST("/lookup", h.Lookup)
	g.GET("/:code", h.Options)
	g.POST("/:code", h.Book)
}

func (h *SelfServiceHandler) Lookup(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	var req dto.LookupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.svc.Lookup(c.Request().Context(), eventID, req.Code, req.Secret)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.LookupResponse{
		Code: order.Code,
		Next: fmt.Sprintf("/api/v1/events/%d/2nd/%s", eventID, order.Code),
	})
}

func (h *SelfServiceHandler) Options(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}

	el, err := h.svc.Options(c.Request().Context(), eventID, c.Param("code"), c.Request().Header.Get(SecretHeader))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOptionsResponse(el))
}

func (h *SelfServiceHandler) Book(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	var req dto.BookSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SubEventID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "subevent_id is required")
	}

	order, err := h.svc.Book(c.Request().Context(), eventID, c.Param("code"), req.Secret, req.SubEventID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookedResponse(order))
}
