// Package notify renders lead and payment notifications for the operators'
// chat. The chat renders a restricted HTML subset, so every user-supplied
// value is escaped before it is placed after a fixed <b>label</b>.
package notify

import (
	"strings"
	"time"
)

// Kind selects the heading line of a notification.
type Kind int

const (
	KindLead Kind = iota
	KindPayment
)

// TimestampLayout renders the time line as day.month.year, hours:minutes:seconds.
const TimestampLayout = "02.01.2006, 15:04:05"

// Fields holds the optional values a notification can carry. Empty values
// are left out of the message.
type Fields struct {
	OfferID        string
	OfferTitle     string
	Name           string
	Contact        string
	Comment        string
	PageURL        string
	Email          string
	Amount         string
	Currency       string
	SubscriptionID string
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape replaces the characters the chat treats as markup.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

func (k Kind) heading() string {
	if k == KindPayment {
		return "💳 <b>Payment received</b>"
	}
	return "🆕 <b>New lead</b>"
}

// Format renders fields using the current local wall-clock time.
func Format(kind Kind, f Fields) string {
	return FormatAt(kind, f, time.Now())
}

// FormatAt renders fields with the time line set to at.
func FormatAt(kind Kind, f Fields, at time.Time) string {
	lines := []string{kind.heading(), ""}

	add := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, "<b>"+label+":</b> "+Escape(value))
	}

	add("Product", firstNonEmpty(f.OfferTitle, f.OfferID))
	add("Name", f.Name)
	add("Contact", f.Contact)
	add("Comment", f.Comment)
	add("Page", f.PageURL)
	add("Email", f.Email)
	if f.Amount != "" {
		add("Amount", strings.TrimSpace(f.Amount+" "+f.Currency))
	}
	add("Subscription", f.SubscriptionID)
	add("Time", at.Format(TimestampLayout))

	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
