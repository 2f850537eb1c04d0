// Package contacts manages the clients and suppliers of the business.
package contacts

import (
	"time"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
)

// Contact is a client or a supplier.
type Contact struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"taxId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the body of create and update calls.
type Input struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// Metrics summarises the business done with a contact.
type Metrics struct {
	TransactionCount  int        `json:"transactionCount"`
	TotalAmount       float64    `json:"totalAmount"`
	AverageAmount     float64    `json:"averageAmount"`
	PendingCount      int        `json:"pendingCount"`
	LastTransactionAt *time.Time `json:"lastTransactionAt,omitempty"`
}

// Transaction is a quotation, sale or purchase involving a contact.
type Transaction struct {
	ID        string        `json:"_id"`
	Type      string        `json:"type"`
	Number    string        `json:"number"`
	Total     float64       `json:"total"`
	Status    status.Status `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// TypeLabel is the display name of the transaction type.
func (t Transaction) TypeLabel() string {
	switch t.Type {
	case "quotation":
		return "Cotización"
	case "sale":
		return "Venta"
	case "purchase":
		return "Compra"
	}
	return t.Type
}

// StatusLabel is the display name of the status, looked up in the
// transition table of the transaction type.
func (t Transaction) StatusLabel() string {
	if table, ok := t.table(); ok {
		return table.Label(t.Status)
	}
	return string(t.Status)
}

// Link is the detail page of the transaction.
func (t Transaction) Link() string {
	switch t.Type {
	case "quotation":
		return "/quotations/" + t.ID
	case "sale":
		return "/sales/" + t.ID
	case "purchase":
		return "/purchases/" + t.ID
	}
	return ""
}

func (t Transaction) table() (status.Table, bool) {
	switch t.Type {
	case "quotation":
		return status.Quotations, true
	case "sale":
		return status.Sales, true
	case "purchase":
		return status.Purchases, true
	}
	return status.Table{}, false
}

// Directory describes one of the two contact collections.
type Directory struct {
	Path     string
	Title    string
	Singular string
	Section  rbac.Section
}

var (
	// Clients buy from the business.
	Clients = Directory{Path: "/clients", Title: "Clientes", Singular: "Cliente", Section: rbac.SectionClients}
	// Suppliers sell to the business.
	Suppliers = Directory{Path: "/suppliers", Title: "Proveedores", Singular: "Proveedor", Section: rbac.SectionSuppliers}
)
