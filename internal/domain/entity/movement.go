package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento del ledger.
type MovementKind string

const (
	MovementReceipt         MovementKind = "RECEIPT"
	MovementDispense        MovementKind = "DISPENSE"
	MovementTransferOut     MovementKind = "TRANSFER_OUT"
	MovementTransferIn      MovementKind = "TRANSFER_IN"
	MovementReturn          MovementKind = "RETURN"
	MovementPendingDelivery MovementKind = "PENDING_DELIVERY"
)

// Valid indica si el tipo pertenece al catálogo.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementReceipt, MovementDispense, MovementTransferOut, MovementTransferIn, MovementReturn, MovementPendingDelivery:
		return true
	}
	return false
}

// MovementRecord registro inmutable del ledger. Exactamente uno de QuantityIn/QuantityOut es > 0.
// ReferenceID apunta al documento, traslado o pendiente que lo originó.
type MovementRecord struct {
	ID          string
	Seq         int64
	ProductID   string
	WarehouseID string
	LotNumber   string
	Kind        MovementKind
	QuantityIn  int64
	QuantityOut int64
	ReferenceID string
	UnitCost    decimal.Decimal
	CreatedAt   time.Time
	CreatedBy   string
}

// Delta efecto neto sobre el saldo del lote.
func (m *MovementRecord) Delta() int64 {
	return m.QuantityIn - m.QuantityOut
}

// Before orden del ledger: secuencia de inserción. Seq se asigna con los bloqueos del lote tomados,
// así una salida nunca queda antes de la entrada que la financió.
func (m *MovementRecord) Before(o *MovementRecord) bool {
	return m.Seq < o.Seq
}
