package booking

import (
	"time"

	"akwa/internal/domain/cancellation"
	"akwa/internal/domain/shared/money"
)

const EventBookingCancelled = "booking.cancelled"

type BookingCancelled struct {
	BookingID   BookingID           `json:"booking_id"`
	Kind        Kind                `json:"kind"`
	ListingID   string              `json:"listing_id"`
	GuestID     string              `json:"guest_id"`
	HostID      string              `json:"host_id"`
	Guest       Contact             `json:"guest"`
	Host        Contact             `json:"host"`
	CheckIn     time.Time           `json:"check_in"`
	CheckOut    time.Time           `json:"check_out,omitempty"`
	Policy      cancellation.Policy `json:"policy"`
	CancelledBy Actor               `json:"cancelled_by"`
	Reason      string              `json:"reason"`
	Refund      money.Money         `json:"refund"`
	Penalty     money.Money         `json:"penalty"`
	At          time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return EventBookingCancelled }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
