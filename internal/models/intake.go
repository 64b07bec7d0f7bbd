package models

import "strings"

const (
	MinNameLength    = 2
	MinContactLength = 5
)

// LeadSubmission is the body of a lead form post. All values come from an
// untrusted browser.
type LeadSubmission struct {
	OfferID    string `json:"offerId"`
	OfferTitle string `json:"offerTitle"`
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Comment    string `json:"comment"`
	PageURL    string `json:"pageUrl"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (l LeadSubmission) Trimmed() LeadSubmission {
	return LeadSubmission{
		OfferID:    strings.TrimSpace(l.OfferID),
		OfferTitle: strings.TrimSpace(l.OfferTitle),
		Name:       strings.TrimSpace(l.Name),
		Contact:    strings.TrimSpace(l.Contact),
		Comment:    strings.TrimSpace(l.Comment),
		PageURL:    strings.TrimSpace(l.PageURL),
	}
}

// CheckoutRequest is the body of a checkout initiation. Its fields are
// copied into the session metadata so the webhook can rebuild the lead.
type CheckoutRequest LeadSubmission

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c CheckoutRequest) Trimmed() CheckoutRequest {
	return CheckoutRequest(LeadSubmission(c).Trimmed())
}

// Metadata returns the session metadata for the request.
func (c CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		"offerId":    c.OfferID,
		"offerTitle": c.OfferTitle,
		"name":       c.Name,
		"contact":    c.Contact,
		"comment":    c.Comment,
		"pageUrl":    c.PageURL,
	}
}

// CheckoutRequestFromMetadata rebuilds the checkout fields from session metadata.
func CheckoutRequestFromMetadata(md map[string]string) CheckoutRequest {
	return CheckoutRequest{
		OfferID:    md["offerId"],
		OfferTitle: md["offerTitle"],
		Name:       md["name"],
		Contact:    md["contact"],
		Comment:    md["comment"],
		PageURL:    md["pageUrl"],
	}
}

// Result is the JSON envelope of the lead and checkout endpoints.
type Result struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// WebhookAck acknowledges a processed webhook delivery.
type WebhookAck struct {
	Received bool `json:"received"`
}
