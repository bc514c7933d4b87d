package bookings

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gatepass/internal/holds"
	"gatepass/internal/shared/utils/response"
)

type Controller interface {
	CreateBooking(c *gin.Context)
	GetBooking(c *gin.Context)
	GetBookingByReference(c *gin.Context)
	ListBookings(c *gin.Context)
	CancelBooking(c *gin.Context)
	PaymentWebhook(c *gin.Context)
}

type controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

func (ctrl *controller) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	booking, err := ctrl.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, holds.ErrHoldNotFound):
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		case errors.Is(err, holds.ErrSessionMismatch):
			response.RespondJSON(c, "error", http.StatusForbidden, err.Error(), nil, nil)
		case errors.Is(err, ErrHoldNotActive):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Booking created successfully", booking, nil)
}

func (ctrl *controller) GetBooking(c *gin.Context) {
	booking, err := ctrl.service.GetBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		statusCode := http.StatusBadRequest
		if errors.Is(err, ErrBookingNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

func (ctrl *controller) GetBookingByReference(c *gin.Context) {
	booking, err := ctrl.service.GetBookingByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		statusCode := http.StatusBadRequest
		if errors.Is(err, ErrBookingNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

func (ctrl *controller) ListBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := ctrl.service.ListBookings(c.Request.Context(),
		c.Query("show_id"), c.Query("status"), limit, offset)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}

func (ctrl *controller) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	err := ctrl.service.CancelBooking(c.Request.Context(), c.Param("bookingId"), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		case errors.Is(err, holds.ErrSessionMismatch):
			response.RespondJSON(c, "error", http.StatusForbidden, err.Error(), nil, nil)
		case errors.Is(err, ErrInvalidTransition):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking cancelled successfully", nil, nil)
}

// PaymentWebhook ingests the gateway's signed notification. The signature
// covers the raw body, so it is read before any JSON binding. A lapsed
// reservation returns 200: the gateway delivered correctly, the refund is
// an internal follow-up.
func (ctrl *controller) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Failed to read webhook body", nil, nil)
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")

	err = ctrl.service.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, ErrReservationLapsed):
			response.RespondJSON(c, "success", http.StatusOK, "Payment recorded; reservation lapsed, refund initiated", nil, nil)
		case errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrPaymentMismatch):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
		case errors.Is(err, ErrBookingNotFound):
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		case err.Error() == "invalid webhook signature":
			response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusInternalServerError, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Webhook processed", nil, nil)
}
