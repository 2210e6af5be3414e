package dto

import (
	"time"

	domainpenalty "akwa/internal/domain/penalty"
)

type PenaltyView struct {
	ID            string     `json:"id"`
	BookingID     string     `json:"booking_id"`
	HostID        string     `json:"host_id"`
	GuestID       string     `json:"guest_id"`
	Amount        MoneyDTO   `json:"amount"`
	Type          string     `json:"type"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Status        string     `json:"status"`
	WaivedReason  string     `json:"waived_reason,omitempty"`
	AdminNotes    string     `json:"admin_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

type PenaltyCollection struct {
	Items  []PenaltyView `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func MapPenalty(rec *domainpenalty.Record) PenaltyView {
	return PenaltyView{
		ID:            string(rec.ID),
		BookingID:     rec.BookingID,
		HostID:        rec.HostID,
		GuestID:       rec.GuestID,
		Amount:        MoneyDTO{Amount: rec.Amount, Currency: rec.Currency},
		Type:          string(rec.Type),
		PaymentMethod: string(rec.PaymentMethod),
		Status:        string(rec.Status),
		WaivedReason:  rec.WaivedReason,
		AdminNotes:    rec.AdminNotes,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		ResolvedAt:    rec.ResolvedAt,
	}
}
