// Package quotations manages the price quotes sent to clients and their
// approval workflow.
package quotations

import (
	"time"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
)

// ErrLocked is returned when a quotation can no longer be edited or deleted.
var ErrLocked = lockedError{}

type lockedError struct{}

func (lockedError) Error() string { return "quotations: quotation is locked" }

func (lockedError) UserMessage() string {
	return "La cotización ya no se puede modificar."
}

func (lockedError) Unwrap() error { return api.ErrRejected }

// Line is one product of a quotation.
type Line struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// Quotation is a price quote for a client.
type Quotation struct {
	ID         string        `json:"_id"`
	Number     string        `json:"number"`
	ClientID   string        `json:"clientId"`
	ClientName string        `json:"clientName"`
	Items      []Line        `json:"items"`
	Subtotal   float64       `json:"subtotal"`
	Tax        float64       `json:"tax"`
	Total      float64       `json:"total"`
	Status     status.Status `json:"status"`
	ValidUntil *time.Time    `json:"validUntil,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// StatusLabel is the display name of the status.
func (q Quotation) StatusLabel() string {
	return status.Quotations.Label(q.Status)
}

// Actions lists the status changes offered for the quotation.
func (q Quotation) Actions() []status.Action {
	return status.Quotations.Actions(q.Status)
}

// Editable reports whether the quotation may still be changed.
func (q Quotation) Editable() bool {
	return q.Status == status.Pending
}

// Deletable reports whether the quotation may be removed. Converted
// quotations back a sale and stay.
func (q Quotation) Deletable() bool {
	return q.Status != status.Converted
}

// Expired reports whether the validity date has passed.
func (q Quotation) Expired(now time.Time) bool {
	return q.ValidUntil != nil && q.Editable() && q.ValidUntil.Before(now)
}

// LineInput is one product line sent on create and update.
type LineInput struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Input is the body of create and update calls.
type Input struct {
	ClientID   string      `json:"clientId"`
	Items      []LineInput `json:"items"`
	ValidUntil string      `json:"validUntil,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

// TaxRate is the VAT applied to quotation subtotals.
const TaxRate = 0.19

// Totals previews the amounts the API computes for lines.
func Totals(lines []LineInput) (subtotal, tax, total float64) {
	for _, l := range lines {
		subtotal += l.Quantity * l.UnitPrice
	}
	tax = subtotal * TaxRate
	return subtotal, tax, subtotal + tax
}
