package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/boat-booking/internal/dto"
	"github.com/Eursukkul/boat-booking/internal/gateway"
	"github.com/Eursukkul/boat-booking/internal/middleware"
	"github.com/Eursukkul/boat-booking/internal/pricing"
	"github.com/Eursukkul/boat-booking/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// RegisterRoutes mounts the booking API. mws wrap only the booking creation
// route (identity and rate limiting).
func (h *BookingHandler) RegisterRoutes(e *echo.Echo, mws ...echo.MiddlewareFunc) {
	api := e.Group("/api/v1")
	api.POST("/bookings", h.CreateBooking, mws...)
	api.GET("/reservations/:id", h.GetReservation)
	api.POST("/reservations/:id/checkout", h.RetryCheckout)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	requester := middleware.UserID(c)
	if requester == "" {
		requester = strings.TrimSpace(req.RequesterID)
	}
	if requester == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requester_id is required")
	}

	result, err := h.svc.BookBoat(c.Request().Context(), service.BookRequest{
		BoatID:      req.BoatID,
		PortID:      req.PortID,
		RequesterID: requester,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Mode:        pricing.Mode(req.Mode),
		Duration:    req.Duration,
		WithSkipper: req.WithSkipper,
	})
	if err != nil {
		if result != nil && result.Reservation != nil {
			return checkoutFailed(c, result.Reservation.ID, err)
		}
		switch {
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, pricing.ErrInvalidMode),
			errors.Is(err, pricing.ErrNegativeInput),
			errors.Is(err, pricing.ErrPriceOverflow):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAssetNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "boat not found")
		default:
			return err
		}
	}

	return c.JSON(http.StatusCreated, dto.BookingResponse{
		ReservationID: result.Reservation.ID,
		RedirectURL:   result.RedirectURL,
	})
}

func (h *BookingHandler) GetReservation(c echo.Context) error {
	reservation, err := h.svc.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "reservation not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, dto.ToReservationResponse(reservation))
}

func (h *BookingHandler) RetryCheckout(c echo.Context) error {
	result, err := h.svc.RetryCheckout(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReservationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "reservation not found")
		case errors.Is(err, service.ErrAlreadySettled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case result != nil && result.Reservation != nil:
			return checkoutFailed(c, result.Reservation.ID, err)
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, dto.BookingResponse{
		ReservationID: result.Reservation.ID,
		RedirectURL:   result.RedirectURL,
	})
}

// checkoutFailed reports a stored reservation whose checkout session could
// not be opened, returning the id so the client can retry.
func checkoutFailed(c echo.Context, reservationID string, err error) error {
	code := http.StatusBadGateway
	msg := "payment gateway rejected the checkout session"
	switch {
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		code = http.StatusServiceUnavailable
		msg = "payment gateway unavailable"
	case errors.Is(err, gateway.ErrAssetNotFound):
		code = http.StatusNotFound
		msg = "boat not found"
	}
	return c.JSON(code, dto.CheckoutFailedResponse{Message: msg, ReservationID: reservationID})
}
