package entity

import "time"

// Product medicamento o insumo. Code es el CUM o código interno.
type Product struct {
	ID          string
	Code        string
	Name        string
	UnitMeasure string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
