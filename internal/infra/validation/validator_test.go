package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akwa/internal/infra/validation"
)

type cancelRequest struct {
	BookingID string `validate:"required"`
	Actor     string `validate:"required,oneof=guest host"`
	Reason    string `json:"reason" validate:"max=5"`
}

func TestValidator_ReportsEveryField(t *testing.T) {
	v := validation.New()

	err := v.Validate(context.Background(), cancelRequest{Actor: "admin", Reason: "too long"})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 3)
	assert.Equal(t, validation.FieldError{Field: "booking_id", Rule: "required"}, verr.Fields[0])
	assert.Equal(t, validation.FieldError{Field: "actor", Rule: "oneof", Param: "guest host"}, verr.Fields[1])
	assert.Equal(t, "reason", verr.Fields[2].Field)
}

func TestValidator_AcceptsValidAndNonStructMessages(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(context.Background(), cancelRequest{BookingID: "bk-1", Actor: "host"}))
	assert.NoError(t, v.Validate(context.Background(), &cancelRequest{BookingID: "bk-1", Actor: "guest"}))
	assert.NoError(t, v.Validate(context.Background(), "not a struct"))
}
