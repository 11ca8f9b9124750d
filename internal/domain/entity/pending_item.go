package entity

import (
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain"
)

// PendingStatus estado de un pendiente de entrega.
type PendingStatus string

const (
	PendingOpen      PendingStatus = "PENDING"
	PendingNotified  PendingStatus = "NOTIFIED"
	PendingPartial   PendingStatus = "PARTIAL"
	PendingDelivered PendingStatus = "DELIVERED"
	PendingCancelled PendingStatus = "CANCELLED"
)

// Terminal DELIVERED y CANCELLED no admiten más cambios.
func (s PendingStatus) Terminal() bool {
	return s == PendingDelivered || s == PendingCancelled
}

// PendingItem cantidad formulada y no entregada a un paciente.
// Invariante: PendingQty + DeliveredQty == PrescribedQty.
type PendingItem struct {
	ID              string
	PatientID       string
	ProductID       string
	WarehouseID     string
	PrescriptionRef string
	PrescribedQty   int64
	PendingQty      int64
	DeliveredQty    int64
	Status          PendingStatus
	Reason          string
	CancelReason    string
	NotifyCount     int
	NotifiedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPendingItem abre un pendiente por el faltante de una dispensación.
// delivered es lo que sí se entregó en esa dispensación (puede ser 0).
func NewPendingItem(id, patientID, productID, warehouseID, prescriptionRef string, shortfall, delivered int64, reason string, now time.Time) (*PendingItem, error) {
	if shortfall <= 0 {
		return nil, &domain.QuantityError{Field: "shortfall", Value: shortfall}
	}
	if delivered < 0 {
		return nil, &domain.QuantityError{Field: "delivered", Value: delivered}
	}
	p := &PendingItem{
		ID:              id,
		PatientID:       patientID,
		ProductID:       productID,
		WarehouseID:     warehouseID,
		PrescriptionRef: prescriptionRef,
		PrescribedQty:   shortfall + delivered,
		PendingQty:      shortfall,
		DeliveredQty:    delivered,
		Status:          PendingOpen,
		Reason:          reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	p.refreshStatus(now)
	return p, nil
}

// Increase suma un nuevo faltante a un pendiente abierto del mismo paciente y producto.
func (p *PendingItem) Increase(shortfall, delivered int64, reason string, now time.Time) error {
	if p.Status.Terminal() {
		return p.transitionError("increase")
	}
	if shortfall <= 0 {
		return &domain.QuantityError{Field: "shortfall", Value: shortfall}
	}
	if delivered < 0 {
		return &domain.QuantityError{Field: "delivered", Value: delivered}
	}
	p.PrescribedQty += shortfall + delivered
	p.PendingQty += shortfall
	p.DeliveredQty += delivered
	if reason != "" {
		p.Reason = reason
	}
	p.refreshStatus(now)
	return nil
}

// Deliver descuenta qty del pendiente. No toca inventario: el caller lo hace en la misma transacción.
func (p *PendingItem) Deliver(qty int64, now time.Time) error {
	if p.Status.Terminal() {
		return p.transitionError("deliver")
	}
	if qty <= 0 {
		return &domain.QuantityError{Field: "quantity", Value: qty}
	}
	if qty > p.PendingQty {
		return &domain.OverDeliveryError{PendingItemID: p.ID, Requested: qty, Pending: p.PendingQty}
	}
	p.PendingQty -= qty
	p.DeliveredQty += qty
	p.refreshStatus(now)
	return nil
}

// Cancel cierra el pendiente sin entregar el saldo.
func (p *PendingItem) Cancel(reason string, now time.Time) error {
	if p.Status.Terminal() {
		return p.transitionError("cancel")
	}
	p.Status = PendingCancelled
	p.CancelReason = reason
	p.ClosedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkNotified registra el aviso al paciente. Un PARTIAL sigue PARTIAL.
func (p *PendingItem) MarkNotified(now time.Time) error {
	if p.Status.Terminal() {
		return p.transitionError("notify")
	}
	p.NotifyCount++
	p.NotifiedAt = &now
	if p.Status == PendingOpen {
		p.Status = PendingNotified
	}
	p.UpdatedAt = now
	return nil
}

func (p *PendingItem) refreshStatus(now time.Time) {
	switch {
	case p.PendingQty == 0 && p.DeliveredQty > 0:
		p.Status = PendingDelivered
		p.ClosedAt = &now
	case p.DeliveredQty > 0:
		p.Status = PendingPartial
	case p.NotifiedAt != nil:
		p.Status = PendingNotified
	default:
		p.Status = PendingOpen
	}
	p.UpdatedAt = now
}

func (p *PendingItem) transitionError(action string) error {
	return &domain.TransitionError{Entity: "pendiente", ID: p.ID, From: string(p.Status), Action: action}
}
