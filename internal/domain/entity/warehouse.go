package entity

import "time"

// Warehouse bodega o dispensario donde se almacena inventario.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
