package entity

import "time"

// DocumentKind tipo de documento que origina movimientos de inventario.
type DocumentKind string

const (
	DocumentReceipt  DocumentKind = "RECEIPT"
	DocumentDispense DocumentKind = "DISPENSE"
	DocumentReturn   DocumentKind = "RETURN"
)

// Document encabezado de una entrada, dispensación o devolución.
// Reference: factura del proveedor, fórmula médica u origen de la devolución según Kind.
type Document struct {
	ID          string
	Kind        DocumentKind
	WarehouseID string
	PatientID   string
	Reference   string
	Notes       string
	CreatedBy   string
	CreatedAt   time.Time
}
