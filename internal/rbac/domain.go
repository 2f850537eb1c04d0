package rbac

import (
	"slices"
	"strings"
)

// Role is the role carried by the user profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSeller  Role = "seller"
)

// ParseRole normalises a role string. Unknown roles map to the empty role,
// which can only see the dashboard home.
func ParseRole(value string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(value))); r {
	case RoleAdmin, RoleManager, RoleSeller:
		return r
	}
	return ""
}

// Section is one navigable area of the dashboard.
type Section string

const (
	SectionProducts    Section = "products"
	SectionConsumables Section = "consumables"
	SectionClients     Section = "clients"
	SectionSuppliers   Section = "suppliers"
	SectionQuotations  Section = "quotations"
	SectionSales       Section = "sales"
	SectionPurchases   Section = "purchases"
	SectionLogs        Section = "logs"
)

// SectionInfo describes how a section shows up in the sidebar.
type SectionInfo struct {
	Section Section
	Label   string
	Path    string
	Group   string
}

var sections = []SectionInfo{
	{SectionProducts, "Productos", "/products", "Inventario"},
	{SectionConsumables, "Insumos", "/consumables", "Inventario"},
	{SectionClients, "Clientes", "/clients", "Contactos"},
	{SectionSuppliers, "Proveedores", "/suppliers", "Contactos"},
	{SectionQuotations, "Cotizaciones", "/quotations", "Operaciones"},
	{SectionSales, "Ventas", "/sales", "Operaciones"},
	{SectionPurchases, "Compras", "/purchases", "Operaciones"},
	{SectionLogs, "Registro de actividad", "/logs", "Sistema"},
}

var grants = map[Role][]Section{
	RoleAdmin: {
		SectionProducts, SectionConsumables, SectionClients, SectionSuppliers,
		SectionQuotations, SectionSales, SectionPurchases, SectionLogs,
	},
	RoleManager: {
		SectionProducts, SectionConsumables, SectionClients, SectionSuppliers,
		SectionQuotations, SectionSales, SectionPurchases,
	},
	RoleSeller: {
		SectionProducts, SectionClients, SectionQuotations, SectionSales,
	},
}

// Sellers only read the catalog and the sales they make.
var sellerWrites = []Section{SectionClients, SectionQuotations}

// Allowed reports whether role may open section.
func Allowed(role Role, section Section) bool {
	return slices.Contains(grants[role], section)
}

// CanWrite reports whether role may create, edit or delete rows of section.
func CanWrite(role Role, section Section) bool {
	if !Allowed(role, section) {
		return false
	}
	if role == RoleSeller {
		return slices.Contains(sellerWrites, section)
	}
	return true
}

// Sections lists every section in sidebar order.
func Sections() []SectionInfo {
	return slices.Clone(sections)
}

// NavItem is one sidebar entry.
type NavItem struct {
	Label  string
	Path   string
	Group  string
	Active bool
}

// Navigation lists the sidebar entries of role. current marks the active one.
func Navigation(role Role, current string) []NavItem {
	items := make([]NavItem, 0, len(sections))
	for _, s := range sections {
		if !Allowed(role, s.Section) {
			continue
		}
		active := current == s.Path || strings.HasPrefix(current, s.Path+"/")
		items = append(items, NavItem{Label: s.Label, Path: s.Path, Group: s.Group, Active: active})
	}
	return items
}
