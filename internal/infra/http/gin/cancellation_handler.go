package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	cancellationapp "akwa/internal/app/handlers/cancellation"
	"akwa/internal/app/queries"
	domainbooking "akwa/internal/domain/booking"
	domaincancellation "akwa/internal/domain/cancellation"
)

type CancellationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type cancelRequest struct {
	Actor                string `json:"actor"`
	Reason               string `json:"reason"`
	PenaltyPaymentMethod string `json:"penalty_payment_method"`
}

func (h CancellationHandler) Cancel(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": err.Error()})
		return
	}
	cmd := cancellationapp.CancelBookingCommand{
		BookingID:            c.Param("id"),
		Actor:                normalize(req.Actor),
		Reason:               req.Reason,
		PenaltyPaymentMethod: normalize(req.PenaltyPaymentMethod),
		RequestedBy:          user.ID,
		IdempotencyKeyV:      c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[cancellationapp.CancelBookingCommand, *dto.CancellationResult](c.Request.Context(), h.Commands, cmd)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, domainbooking.ErrAlreadyCancelled) && result != nil:
		c.JSON(http.StatusOK, result)
	default:
		var rejection *domaincancellation.RejectionError
		if errors.As(err, &rejection) && result != nil {
			respondError(c, h.Logger, err, gin.H{"info": result.Info})
			return
		}
		respondError(c, h.Logger, err, nil)
	}
}

func (h CancellationHandler) Quote(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	q := cancellationapp.GetCancellationQuery{
		BookingID:   c.Param("id"),
		Actor:       normalize(c.Query("actor")),
		RequestedBy: user.ID,
	}
	info, err := queries.Ask[cancellationapp.GetCancellationQuery, *dto.CancellationInfo](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, info)
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var _ CancellationHTTP = CancellationHandler{}
