package handler

import (
	"context"
	"net/http"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/labstack/echo/v4"
)

type AuditLog interface {
	Lines(ctx context.Context, eventID uint, code string) ([]service.LogLine, error)
}

// AdminHandler serves product configuration, event settings and the scheduling log.
type AdminHandler struct {
	configs  service.ItemConfigService
	settings service.SettingsService
	audit    AuditLog
}

func NewAdminHandler(configs service.ItemConfigService, settings service.SettingsService, audit AuditLog) *AdminHandler {
	return &AdminHandler{configs: configs, settings: settings, audit: audit}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/events/:event")
	g.GET("/items/:item/autosched", h.GetItemConfig)
	g.PUT("/items/:item/autosched", h.SaveItemConfig)
	g.DELETE("/items/:item/autosched", h.DeleteItemConfig)
	g.GET("/autosched/settings", h.GetSettings)
	g.PUT("/autosched/settings", h.UpdateSettings)
	g.GET("/orders/:code/autosched-log", h.OrderLog)
}

func (h *AdminHandler) GetItemConfig(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	itemID, err := uintParam(c, "item")
	if err != nil {
		return err
	}

	cfg, err := h.configs.Get(c.Request().Context(), eventID, itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToItemConfigResponse(cfg))
}

func (h *AdminHandler) SaveItemConfig(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	itemID, err := uintParam(c, "item")
	if err != nil {
		return err
	}
	var in service.ItemConfigInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cfg, err := h.configs.Save(c.Request().Context(), eventID, itemID, in)
	if err != nil {
		return httpError(err)
	}
	if cfg == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, dto.ToItemConfigResponse(cfg))
}

func (h *AdminHandler) DeleteItemConfig(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	itemID, err := uintParam(c, "item")
	if err != nil {
		return err
	}

	if err := h.configs.Delete(c.Request().Context(), eventID, itemID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) GetSettings(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	s, err := h.settings.Get(c.Request().Context(), eventID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	in := service.DefaultSettings()
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.settings.Update(c.Request().Context(), eventID, &in); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, in)
}

func (h *AdminHandler) OrderLog(c echo.Context) error {
	eventID, err := uintParam(c, "event")
	if err != nil {
		return err
	}
	lines, err := h.audit.Lines(c.Request().Context(), eventID, c.Param("code"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lines)
}
