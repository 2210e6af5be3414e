package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	cancellationapp "akwa/internal/app/handlers/cancellation"
	"akwa/internal/app/middleware"
	domainbooking "akwa/internal/domain/booking"
	domaincancellation "akwa/internal/domain/cancellation"
	domainpenalty "akwa/internal/domain/penalty"
	"akwa/internal/infra/validation"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{validation.ErrInvalid, http.StatusBadRequest, "validation_failed"},
	{domainbooking.ErrInvalidActor, http.StatusBadRequest, "invalid_actor"},
	{domainpenalty.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{domainpenalty.ErrInvalidCollection, http.StatusBadRequest, "invalid_collection_method"},
	{domainpenalty.ErrWaiveReasonRequired, http.StatusBadRequest, "waive_reason_required"},
	{middleware.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{middleware.ErrForbidden, http.StatusForbidden, "forbidden"},
	{cancellationapp.ErrActorMismatch, http.StatusForbidden, "actor_mismatch"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "not_found"},
	{domainpenalty.ErrPenaltyNotFound, http.StatusNotFound, "not_found"},
	{domainbooking.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{domainbooking.ErrConcurrentUpdate, http.StatusConflict, "concurrency_conflict"},
	{domainpenalty.ErrConcurrentUpdate, http.StatusConflict, "concurrency_conflict"},
	{domainpenalty.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domainbooking.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domaincancellation.ErrPolicyForbids, http.StatusUnprocessableEntity, "policy_forbids"},
	{domaincancellation.ErrPaymentMethodRequired, http.StatusUnprocessableEntity, "payment_method_required"},
}

func classifyError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes the mapped status. Unmapped errors are logged and
// reported without detail.
func respondError(c *gin.Context, logger *slog.Logger, err error, extra gin.H) {
	status, code := classifyError(err)
	body := gin.H{"error": code, "message": err.Error()}
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		body["message"] = "internal error"
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
