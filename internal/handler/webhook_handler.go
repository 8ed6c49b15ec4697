package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Eursukkul/boat-booking/config"
	"github.com/Eursukkul/boat-booking/internal/dto"
	"github.com/Eursukkul/boat-booking/internal/gateway"
	"github.com/Eursukkul/boat-booking/internal/service"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 16

type WebhookHandler struct {
	svc           service.SettlementService
	unknownPolicy config.UnknownPolicy
}

func NewWebhookHandler(svc service.SettlementService, unknownPolicy config.UnknownPolicy) *WebhookHandler {
	if unknownPolicy == "" {
		unknownPolicy = config.UnknownRetry
	}
	return &WebhookHandler{svc: svc, unknownPolicy: unknownPolicy}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/webhooks/payments", h.HandlePayment)
}

// HandlePayment passes the raw body to settlement untouched; the signature
// covers the exact bytes sent. A 2xx tells the gateway to stop redelivering.
func (h *WebhookHandler) HandlePayment(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}

	result, err := h.svc.HandleEvent(c.Request().Context(), body, c.Request().Header.Get(gateway.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureInvalid):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		case errors.Is(err, service.ErrMalformedEvent):
			return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
		case errors.Is(err, service.ErrMissingCorrelation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownReservation):
			if h.unknownPolicy == config.UnknownDrop {
				log.Printf("[Webhook] Dropping event: %v", err)
				return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true, Result: "dropped"})
			}
			return echo.NewHTTPError(http.StatusNotFound, "unknown reservation")
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true, Result: result.String()})
}
