package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// KardexEntry fila del kardex de un (producto, bodega) con saldo acumulado.
type KardexEntry struct {
	Date        time.Time
	MovementID  string
	Kind        MovementKind
	LotNumber   string
	ReferenceID string
	QuantityIn  int64
	QuantityOut int64
	Balance     int64 // saldo acumulado del producto en la bodega
	LotBalance  int64 // saldo acumulado del lote
	UnitCost    decimal.Decimal
	AverageCost decimal.Decimal // costo promedio ponderado después del movimiento
}
