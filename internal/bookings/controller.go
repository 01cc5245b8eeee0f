package bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"boxoffice/internal/seats"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/shared/utils/response"
)

type Controller interface {
	PlaceHold(c *gin.Context)
	ConfirmHold(c *gin.Context)
	CancelHold(c *gin.Context)
	GetHold(c *gin.Context)
	GetBooking(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// PlaceHold handles POST /bookings/hold
func (ctrl *controller) PlaceHold(c *gin.Context) {
	var req PlaceHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, bindingErrors(err))
		return
	}

	idempotencyKey := middleware.GetIdempotencyKey(c)

	hold, err := ctrl.service.PlaceHold(c.Request.Context(), &req, idempotencyKey)
	if err != nil {
		respondHoldError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, hold.Message, hold, nil)
}

// ConfirmHold handles POST /bookings/:id/confirm where :id is the hold token.
func (ctrl *controller) ConfirmHold(c *gin.Context) {
	holdToken := c.Param("id")

	var req ConfirmHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, bindingErrors(err))
		return
	}
	// The token in the path wins over whatever the body carries
	req.HoldToken = holdToken

	booking, err := ctrl.service.ConfirmHold(c.Request.Context(), holdToken, &req)
	if err != nil {
		respondHoldError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking confirmed successfully", booking, nil)
}

// CancelHold handles DELETE /bookings/hold/:holdToken
func (ctrl *controller) CancelHold(c *gin.Context) {
	holdToken := c.Param("holdToken")

	customerID, err := strconv.ParseInt(c.Query("customer_id"), 10, 64)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid or missing customer_id", nil, nil)
		return
	}

	if err := ctrl.service.CancelHold(c.Request.Context(), holdToken, customerID); err != nil {
		respondHoldError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHold handles GET /bookings/hold/:holdToken
func (ctrl *controller) GetHold(c *gin.Context) {
	holdToken := c.Param("holdToken")

	hold, err := ctrl.service.GetHold(c.Request.Context(), holdToken)
	if err != nil {
		respondHoldError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Hold retrieved successfully", hold, nil)
}

// GetBooking handles GET /bookings/:id where :id is the booking reference.
func (ctrl *controller) GetBooking(c *gin.Context) {
	reference := c.Param("id")

	booking, err := ctrl.service.GetBooking(c.Request.Context(), reference)
	if err != nil {
		respondHoldError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// bindingErrors flattens validator field errors into a field -> message map
// for the response envelope. Anything else comes back as a bare string.
func bindingErrors(err error) interface{} {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = "failed " + fe.Tag() + " validation"
	}
	return details
}

// respondHoldError maps service errors onto HTTP statuses. Conflicts that
// are worth retrying with different seats come back 409; a dead hold is
// 410 so clients know the token itself will never work again.
func respondHoldError(c *gin.Context, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.RespondJSON(c, "error", http.StatusBadRequest, validationErr.Message, nil, nil)
	case errors.Is(err, ErrSeatsLocked), errors.Is(err, ErrSeatsUnavailable),
		errors.Is(err, ErrAlreadyConfirmed):
		response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
	case errors.Is(err, ErrHoldNotFound), errors.Is(err, ErrBookingNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
	case errors.Is(err, ErrHoldNotActive), errors.Is(err, ErrConfirmConflict):
		response.RespondJSON(c, "error", http.StatusGone, err.Error(), nil, nil)
	case errors.Is(err, ErrCustomerMismatch):
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
	case seats.IsConnectionError(err):
		response.RespondJSON(c, "error", http.StatusServiceUnavailable, "Service temporarily unavailable, please retry", nil, nil)
	default:
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, err.Error())
	}
}
