// Package status holds the fixed status transition tables of quotations,
// sales and purchases.
package status

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidTransition is returned when a row cannot move to the requested status.
var ErrInvalidTransition = errors.New("status: invalid transition")

// Status is the lifecycle state of a document.
type Status string

const (
	Pending   Status = "pending"
	Approved  Status = "approved"
	Rejected  Status = "rejected"
	Converted Status = "converted"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Received  Status = "received"
)

// Parse normalises a status coming from the API or a form.
func Parse(value string) Status {
	return Status(strings.ToLower(strings.TrimSpace(value)))
}

// Action is one status change offered on a row.
type Action struct {
	Target Status
	Label  string
}

// Table is a transition table. Statuses without outgoing edges are terminal.
type Table struct {
	name    string
	order   []Status
	edges   map[Status][]Status
	labels  map[Status]string
	actions map[Status]string
}

// Quotations: pending to approved or rejected, approved to converted.
var Quotations = Table{
	name:  "quotation",
	order: []Status{Pending, Approved, Rejected, Converted},
	edges: map[Status][]Status{
		Pending:  {Approved, Rejected},
		Approved: {Converted},
	},
	labels: map[Status]string{
		Pending:   "Pendiente",
		Approved:  "Aprobada",
		Rejected:  "Rechazada",
		Converted: "Convertida",
	},
	actions: map[Status]string{
		Approved:  "Aprobar",
		Rejected:  "Rechazar",
		Converted: "Convertir en venta",
	},
}

// Sales: pending to completed or cancelled.
var Sales = Table{
	name:  "sale",
	order: []Status{Pending, Completed, Cancelled},
	edges: map[Status][]Status{
		Pending: {Completed, Cancelled},
	},
	labels: map[Status]string{
		Pending:   "Pendiente",
		Completed: "Completada",
		Cancelled: "Cancelada",
	},
	actions: map[Status]string{
		Completed: "Completar",
		Cancelled: "Cancelar",
	},
}

// Purchases: pending to received or cancelled.
var Purchases = Table{
	name:  "purchase",
	order: []Status{Pending, Received, Cancelled},
	edges: map[Status][]Status{
		Pending: {Received, Cancelled},
	},
	labels: map[Status]string{
		Pending:   "Pendiente",
		Received:  "Recibida",
		Cancelled: "Cancelada",
	},
	actions: map[Status]string{
		Received:  "Marcar como recibida",
		Cancelled: "Cancelar",
	},
}

// Name identifies the table in errors and logs.
func (t Table) Name() string { return t.name }

// Statuses lists every known status in display order.
func (t Table) Statuses() []Status {
	return slices.Clone(t.order)
}

// Known reports whether s belongs to the table.
func (t Table) Known(s Status) bool {
	return slices.Contains(t.order, s)
}

// Next returns the statuses reachable from s in one step.
func (t Table) Next(s Status) []Status {
	return slices.Clone(t.edges[s])
}

// CanMove reports whether from -> to is an edge of the table.
func (t Table) CanMove(from, to Status) bool {
	return slices.Contains(t.edges[from], to)
}

// Terminal reports whether no status change is possible from s. Unknown
// statuses are treated as terminal so that no controls are offered.
func (t Table) Terminal(s Status) bool {
	return len(t.edges[s]) == 0
}

// Label is the display name of s.
func (t Table) Label(s Status) string {
	if label, ok := t.labels[s]; ok {
		return label
	}
	return string(s)
}

// Actions lists the status changes to render for a row in s. Terminal rows
// get none.
func (t Table) Actions(s Status) []Action {
	next := t.edges[s]
	if len(next) == 0 {
		return nil
	}
	out := make([]Action, 0, len(next))
	for _, target := range next {
		out = append(out, Action{Target: target, Label: t.actions[target]})
	}
	return out
}

// Validate returns ErrInvalidTransition when from -> to is not allowed.
func (t Table) Validate(from, to Status) error {
	if !t.CanMove(from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, t.name, from, to)
	}
	return nil
}
