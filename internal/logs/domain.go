// Package logs reads and prunes the activity log kept by the API.
package logs

import (
	"bytes"
	"encoding/json"
	"time"
)

// Entry is one activity log record.
type Entry struct {
	ID         string          `json:"_id"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"documentId"`
	UserID     string          `json:"userId"`
	UserName   string          `json:"userName,omitempty"`
	IP         string          `json:"ip,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ChangesText is the change set indented for the detail panel.
func (e Entry) ChangesText() string {
	if len(e.Changes) == 0 || string(e.Changes) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.Changes, "", "  "); err != nil {
		return string(e.Changes)
	}
	return buf.String()
}

// OperationLabel is the display name of the operation.
func (e Entry) OperationLabel() string {
	return labelOf(Operations, e.Operation)
}

// CollectionLabel is the display name of the collection.
func (e Entry) CollectionLabel() string {
	return labelOf(Collections, e.Collection)
}

// Option is a value offered by a filter select.
type Option struct {
	Value string
	Label string
}

// Operations that can be filtered on.
var Operations = []Option{
	{"create", "Creación"},
	{"update", "Actualización"},
	{"delete", "Eliminación"},
	{"status_change", "Cambio de estado"},
	{"login", "Inicio de sesión"},
}

// Collections that can be filtered on.
var Collections = []Option{
	{"products", "Productos"},
	{"consumables", "Insumos"},
	{"clients", "Clientes"},
	{"suppliers", "Proveedores"},
	{"quotations", "Cotizaciones"},
	{"sales", "Ventas"},
	{"purchases", "Compras"},
	{"users", "Usuarios"},
}

// CleanupResult is the answer of the cleanup endpoint.
type CleanupResult struct {
	DeletedCount int `json:"deletedCount"`
}

func labelOf(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
