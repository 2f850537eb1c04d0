// Package inventory manages the product and consumable catalogs.
package inventory

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
)

// Item is a product or a consumable as stored by the API.
type Item struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Price       float64   `json:"price"`
	Stock       float64   `json:"stock"`
	MinStock    float64   `json:"minStock,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LowStock reports whether the stock reached the alert threshold.
func (i Item) LowStock() bool {
	return i.MinStock > 0 && i.Stock <= i.MinStock
}

// Input is the body of create and update calls.
type Input struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price"`
	Stock       float64 `json:"stock"`
	MinStock    float64 `json:"minStock"`
}

// Catalog describes one of the two item collections.
type Catalog struct {
	Path     string
	Title    string
	Singular string
	Section  rbac.Section
}

// Label is the singular name capitalised to open a sentence.
func (c Catalog) Label() string {
	return cases.Title(language.Spanish).String(c.Singular)
}

var (
	// Products are the goods sold to clients.
	Products = Catalog{Path: "/products", Title: "Productos", Singular: "producto", Section: rbac.SectionProducts}
	// Consumables are the supplies used in production.
	Consumables = Catalog{Path: "/consumables", Title: "Insumos", Singular: "insumo", Section: rbac.SectionConsumables}
)

// sortField extracts the value of a sortable column.
func sortField(i Item, key string) any {
	switch key {
	case "name":
		return i.Name
	case "category":
		return i.Category
	case "unit":
		return i.Unit
	case "price":
		return i.Price
	case "stock":
		return i.Stock
	case "createdAt":
		return i.CreatedAt
	}
	return nil
}
