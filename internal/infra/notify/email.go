package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"akwa/internal/app/policies"
)

var ErrNoRecipientEmail = errors.New("notify: recipient has no email address")

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends cancellation notices over SMTP.
type Email struct {
	sender mailSender
	from   string
}

func NewEmail(host string, port int, username, password, from string) *Email {
	return &Email{sender: gomail.NewDialer(host, port, username, password), from: from}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, role policies.Role, n policies.CancellationNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(n.Email) == "" {
		return ErrNoRecipientEmail
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", n.Email)
	m.SetHeader("Subject", subject(role, n))
	m.SetBody("text/html", body(role, n))
	return e.sender.DialAndSend(m)
}

func subject(role policies.Role, n policies.CancellationNotice) string {
	if role == policies.RoleHost && n.CancelledBy == string(policies.RoleHost) && n.Penalty.Amount > 0 {
		return fmt.Sprintf("Booking %s cancelled: penalty of %s", n.BookingID, formatAmount(n.Penalty.Amount, n.Penalty.Currency))
	}
	return fmt.Sprintf("Booking %s cancelled", n.BookingID)
}

func body(role policies.Role, n policies.CancellationNotice) string {
	var b strings.Builder
	name := n.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, `<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">`)
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>Booking <b>%s</b> (%s to %s) was cancelled by the %s.</p>",
		html.EscapeString(n.BookingID), n.CheckIn.Format("2006-01-02"), checkOut(n), html.EscapeString(n.CancelledBy))
	if n.Reason != "" {
		fmt.Fprintf(&b, "<p>Reason: %s</p>", html.EscapeString(n.Reason))
	}
	switch role {
	case policies.RoleGuest:
		fmt.Fprintf(&b, "<p>Your refund: <b>%s</b>.</p>", formatAmount(n.Refund.Amount, n.Refund.Currency))
	case policies.RoleHost:
		if n.CancelledBy == string(policies.RoleHost) && n.Penalty.Amount > 0 {
			fmt.Fprintf(&b, "<p>A cancellation penalty of <b>%s</b> is now pending.</p>", formatAmount(n.Penalty.Amount, n.Penalty.Currency))
		} else {
			fmt.Fprintf(&b, "<p>The guest receives %s back.</p>", formatAmount(n.Refund.Amount, n.Refund.Currency))
		}
	}
	b.WriteString("</div>")
	return b.String()
}

func checkOut(n policies.CancellationNotice) string {
	if n.CheckOut.IsZero() {
		return "open end"
	}
	return n.CheckOut.Format("2006-01-02")
}

func formatAmount(amount int64, currency string) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", amount, currency))
}
