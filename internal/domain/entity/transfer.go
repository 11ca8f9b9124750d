package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/domain"
)

// TransferStatus estado del traslado entre bodegas.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// Terminal indica si el estado no admite más transiciones.
func (s TransferStatus) Terminal() bool {
	return s == TransferReceived || s == TransferCancelled
}

// TransferAction acción que dispara una transición.
type TransferAction string

const (
	TransferSend    TransferAction = "SEND"
	TransferReceive TransferAction = "RECEIVE"
	TransferCancel  TransferAction = "CANCEL"
)

// transferTransitions tabla de transiciones permitidas.
var transferTransitions = map[TransferStatus]map[TransferAction]TransferStatus{
	TransferPending: {
		TransferSend:   TransferInTransit,
		TransferCancel: TransferCancelled,
	},
	TransferInTransit: {
		TransferReceive: TransferReceived,
		TransferCancel:  TransferCancelled,
	},
}

// TransferItem lo solicitado al crear el traslado. LotNumber vacío: se resuelve por FEFO al enviar.
type TransferItem struct {
	ProductID string `json:"product_id"`
	LotNumber string `json:"lot_number,omitempty"`
	Quantity  int64  `json:"quantity"`
}

// TransferLine lote concreto descontado en origen al enviar; RECEIVE y CANCEL lo reproducen.
type TransferLine struct {
	ProductID  string          `json:"product_id"`
	LotNumber  string          `json:"lot_number"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

// Transfer traslado de stock entre dos bodegas con fase en tránsito.
type Transfer struct {
	ID              string
	FromWarehouseID string
	ToWarehouseID   string
	Status          TransferStatus
	Items           []TransferItem
	Lines           []TransferLine
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	SentAt          *time.Time
	ReceivedAt      *time.Time
	CancelledAt     *time.Time
	UpdatedAt       time.Time
}

// Next calcula el estado destino de aplicar action, o TransitionError si no está permitido.
func (t *Transfer) Next(action TransferAction) (TransferStatus, error) {
	next, ok := transferTransitions[t.Status][action]
	if !ok {
		return t.Status, &domain.TransitionError{
			Entity: "traslado",
			ID:     t.ID,
			From:   string(t.Status),
			Action: string(action),
		}
	}
	return next, nil
}

// Apply mueve el traslado al nuevo estado y sella la fecha correspondiente.
func (t *Transfer) Apply(action TransferAction, now time.Time) error {
	next, err := t.Next(action)
	if err != nil {
		return err
	}
	switch next {
	case TransferInTransit:
		t.SentAt = &now
	case TransferReceived:
		t.ReceivedAt = &now
	case TransferCancelled:
		t.CancelledAt = &now
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}
