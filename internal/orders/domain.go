// Package orders covers sales and purchases: confirmed documents that only
// move along their status table once created.
package orders

import (
	"time"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
)

// Line is one product of an order.
type Line struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// Order is a sale to a client or a purchase from a supplier.
type Order struct {
	ID           string        `json:"_id"`
	Number       string        `json:"number"`
	ClientID     string        `json:"clientId,omitempty"`
	ClientName   string        `json:"clientName,omitempty"`
	SupplierID   string        `json:"supplierId,omitempty"`
	SupplierName string        `json:"supplierName,omitempty"`
	QuotationID  string        `json:"quotationId,omitempty"`
	Items        []Line        `json:"items"`
	Subtotal     float64       `json:"subtotal"`
	Tax          float64       `json:"tax"`
	Total        float64       `json:"total"`
	Status       status.Status `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Party returns the id and name of the counterpart.
func (o Order) Party() (id, name string) {
	if o.SupplierID != "" || o.SupplierName != "" {
		return o.SupplierID, o.SupplierName
	}
	return o.ClientID, o.ClientName
}

// Kind describes one order collection.
type Kind struct {
	Path       string
	Title      string
	Singular   string
	Section    rbac.Section
	Table      status.Table
	PartyLabel string
	PartyPath  string
	PartySort  string
}

var (
	// Sales are orders placed by clients.
	Sales = Kind{
		Path:       "/sales",
		Title:      "Ventas",
		Singular:   "Venta",
		Section:    rbac.SectionSales,
		Table:      status.Sales,
		PartyLabel: "Cliente",
		PartyPath:  "/clients",
		PartySort:  "clientName",
	}
	// Purchases are orders placed with suppliers.
	Purchases = Kind{
		Path:       "/purchases",
		Title:      "Compras",
		Singular:   "Compra",
		Section:    rbac.SectionPurchases,
		Table:      status.Purchases,
		PartyLabel: "Proveedor",
		PartyPath:  "/suppliers",
		PartySort:  "supplierName",
	}
)
