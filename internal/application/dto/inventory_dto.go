package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// ReceiptItemRequest línea de POST /api/inventory/receipts.
type ReceiptItemRequest struct {
	ProductID  string          `json:"product_id" validate:"required"`
	LotNumber  string          `json:"lot_number" validate:"required,max=60"`
	Quantity   int64           `json:"quantity" validate:"gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate string          `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Revalue    bool            `json:"revalue,omitempty"`
}

// ReceiptRequest body para POST /api/inventory/receipts.
type ReceiptRequest struct {
	WarehouseID string               `json:"warehouse_id" validate:"required"`
	Reference   string               `json:"reference" validate:"max=120"`
	Notes       string               `json:"notes,omitempty" validate:"max=500"`
	Items       []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ToInput traduce la petición al caso de uso.
func (r ReceiptRequest) ToInput(userID string) (inventory.ReceiptInput, error) {
	in := inventory.ReceiptInput{WarehouseID: r.WarehouseID, Reference: r.Reference, Notes: r.Notes, UserID: userID}
	for i, it := range r.Items {
		exp, err := parseDate(fmt.Sprintf("items[%d].expiry_date", i), it.ExpiryDate)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, inventory.ReceiptItem{
			ProductID: it.ProductID, LotNumber: it.LotNumber, Quantity: it.Quantity,
			UnitCost: it.UnitCost, ExpiryDate: exp, Revalue: it.Revalue,
		})
	}
	return in, nil
}

// ReturnItemRequest línea devuelta; lot_number vacío va al lote SIN-LOTE.
type ReturnItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	LotNumber string          `json:"lot_number,omitempty" validate:"max=60"`
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	Reason    string          `json:"reason,omitempty" validate:"max=200"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// ReturnRequest body para POST /api/inventory/returns.
type ReturnRequest struct {
	WarehouseID string              `json:"warehouse_id" validate:"required"`
	PatientID   string              `json:"patient_id,omitempty"`
	Source      string              `json:"source,omitempty" validate:"max=120"`
	Items       []ReturnItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ToInput traduce la petición al caso de uso.
func (r ReturnRequest) ToInput(userID string) inventory.ReturnInput {
	in := inventory.ReturnInput{WarehouseID: r.WarehouseID, PatientID: r.PatientID, Source: r.Source, UserID: userID}
	for _, it := range r.Items {
		in.Items = append(in.Items, inventory.ReturnItem{
			ProductID: it.ProductID, LotNumber: it.LotNumber, Quantity: it.Quantity, Reason: it.Reason, UnitCost: it.UnitCost,
		})
	}
	return in
}

// DocumentResponse respuesta de entradas y devoluciones.
type DocumentResponse struct {
	DocumentID string        `json:"document_id"`
	Lots       []LotResponse `json:"lots"`
}

// DispenseItemRequest línea de POST /api/inventory/dispensations.
// Con pending_item_id la línea redime ese pendiente y quantity_prescribed se ignora.
type DispenseItemRequest struct {
	ProductID          string `json:"product_id" validate:"required_without=PendingItemID"`
	QuantityPrescribed int64  `json:"quantity_prescribed" validate:"gte=0"`
	QuantityToDeliver  int64  `json:"quantity_to_deliver" validate:"gte=0"`
	LotNumber          string `json:"lot_number,omitempty" validate:"max=60"`
	PendingItemID      string `json:"pending_item_id,omitempty"`
	Reason             string `json:"reason,omitempty" validate:"max=200"`
}

// DispenseRequest body para POST /api/inventory/dispensations.
type DispenseRequest struct {
	WarehouseID     string                `json:"warehouse_id" validate:"required"`
	PatientID       string                `json:"patient_id" validate:"required"`
	PrescriptionRef string                `json:"prescription_ref" validate:"max=120"`
	Items           []DispenseItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ToInput traduce la petición al caso de uso.
func (r DispenseRequest) ToInput(userID string) inventory.DispenseInput {
	in := inventory.DispenseInput{
		WarehouseID: r.WarehouseID, PatientID: r.PatientID, PrescriptionRef: r.PrescriptionRef, UserID: userID,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, inventory.DispenseItem{
			ProductID: it.ProductID, QuantityPrescribed: it.QuantityPrescribed, QuantityToDeliver: it.QuantityToDeliver,
			LotNumber: it.LotNumber, PendingItemID: it.PendingItemID, Reason: it.Reason,
		})
	}
	return in
}

// DispenseLineResponse resultado por línea.
type DispenseLineResponse struct {
	ProductID   string               `json:"product_id"`
	Delivered   int64                `json:"delivered"`
	Drawn       []inventory.DrawnLot `json:"drawn"`
	PendingItem *PendingItemResponse `json:"pending_item,omitempty"`
}

// DispenseResponse respuesta de POST /api/inventory/dispensations.
type DispenseResponse struct {
	DocumentID string                 `json:"document_id"`
	Lines      []DispenseLineResponse `json:"lines"`
}

// NewDispenseResponse arma la respuesta desde el resultado del caso de uso.
func NewDispenseResponse(res *inventory.DispenseResult) DispenseResponse {
	out := DispenseResponse{DocumentID: res.DocumentID, Lines: make([]DispenseLineResponse, 0, len(res.Lines))}
	for _, l := range res.Lines {
		line := DispenseLineResponse{ProductID: l.ProductID, Delivered: l.Delivered, Drawn: l.Drawn}
		if line.Drawn == nil {
			line.Drawn = []inventory.DrawnLot{}
		}
		if l.PendingItem != nil {
			p := NewPendingItemResponse(l.PendingItem)
			line.PendingItem = &p
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

// LotResponse saldo de un lote.
type LotResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	LotNumber   string          `json:"lot_number"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiryDate  string          `json:"expiry_date,omitempty"`
	Blocked     bool            `json:"blocked"`
}

// NewLotResponses convierte saldos de lote.
func NewLotResponses(lots []entity.LotBalance) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, LotResponse{
			ProductID: l.ProductID, WarehouseID: l.WarehouseID, LotNumber: l.LotNumber, Quantity: l.Quantity,
			UnitCost: l.UnitCost, ExpiryDate: formatDate(l.ExpiryDate), Blocked: l.Blocked,
		})
	}
	return out
}

// TransferItemRequest ítem de traslado; lot_number vacío se resuelve por FEFO al enviar.
type TransferItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	LotNumber string `json:"lot_number,omitempty" validate:"max=60"`
	Quantity  int64  `json:"quantity" validate:"gt=0"`
}

// CreateTransferRequest body para POST /api/inventory/transfers.
type CreateTransferRequest struct {
	FromWarehouseID string                `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string                `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Notes           string                `json:"notes,omitempty" validate:"max=500"`
	Items           []TransferItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ToInput traduce la petición al caso de uso.
func (r CreateTransferRequest) ToInput(userID string) inventory.CreateTransferInput {
	in := inventory.CreateTransferInput{
		FromWarehouseID: r.FromWarehouseID, ToWarehouseID: r.ToWarehouseID, Notes: r.Notes, UserID: userID,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, entity.TransferItem{ProductID: it.ProductID, LotNumber: it.LotNumber, Quantity: it.Quantity})
	}
	return in
}

// TransferResponse traslado con sus líneas resueltas.
type TransferResponse struct {
	ID              string                `json:"id"`
	FromWarehouseID string                `json:"from_warehouse_id"`
	ToWarehouseID   string                `json:"to_warehouse_id"`
	Status          string                `json:"status"`
	Items           []entity.TransferItem `json:"items"`
	Lines           []entity.TransferLine `json:"lines"`
	Notes           string                `json:"notes,omitempty"`
	CreatedBy       string                `json:"created_by,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	SentAt          *time.Time            `json:"sent_at,omitempty"`
	ReceivedAt      *time.Time            `json:"received_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
}

// NewTransferResponse convierte la entidad.
func NewTransferResponse(t *entity.Transfer) TransferResponse {
	out := TransferResponse{
		ID: t.ID, FromWarehouseID: t.FromWarehouseID, ToWarehouseID: t.ToWarehouseID, Status: string(t.Status),
		Items: t.Items, Lines: t.Lines, Notes: t.Notes, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt,
		SentAt: t.SentAt, ReceivedAt: t.ReceivedAt, CancelledAt: t.CancelledAt,
	}
	if out.Lines == nil {
		out.Lines = []entity.TransferLine{}
	}
	return out
}

// DeliverPendingRequest body para POST /api/inventory/pending-items/:id/deliver.
type DeliverPendingRequest struct {
	Quantity  int64  `json:"quantity" validate:"gt=0"`
	LotNumber string `json:"lot_number,omitempty" validate:"max=60"`
}

// CancelPendingRequest body para POST /api/inventory/pending-items/:id/cancel.
type CancelPendingRequest struct {
	Reason string `json:"reason" validate:"required,max=200"`
}

// PendingItemResponse pendiente de entrega.
type PendingItemResponse struct {
	ID              string     `json:"id"`
	PatientID       string     `json:"patient_id"`
	ProductID       string     `json:"product_id"`
	WarehouseID     string     `json:"warehouse_id"`
	PrescriptionRef string     `json:"prescription_ref,omitempty"`
	PrescribedQty   int64      `json:"prescribed_qty"`
	PendingQty      int64      `json:"pending_qty"`
	DeliveredQty    int64      `json:"delivered_qty"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	NotifyCount     int        `json:"notify_count"`
	NotifiedAt      *time.Time `json:"notified_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewPendingItemResponse convierte la entidad.
func NewPendingItemResponse(p *entity.PendingItem) PendingItemResponse {
	return PendingItemResponse{
		ID: p.ID, PatientID: p.PatientID, ProductID: p.ProductID, WarehouseID: p.WarehouseID,
		PrescriptionRef: p.PrescriptionRef, PrescribedQty: p.PrescribedQty, PendingQty: p.PendingQty,
		DeliveredQty: p.DeliveredQty, Status: string(p.Status), Reason: p.Reason, CancelReason: p.CancelReason,
		NotifyCount: p.NotifyCount, NotifiedAt: p.NotifiedAt, ClosedAt: p.ClosedAt, CreatedAt: p.CreatedAt,
	}
}

// PendingDeliveryResponse respuesta de una entrega de pendiente.
type PendingDeliveryResponse struct {
	Item  PendingItemResponse  `json:"item"`
	Drawn []inventory.DrawnLot `json:"drawn"`
}

// KardexQueryRequest query de GET /api/inventory/kardex.
type KardexQueryRequest struct {
	ProductID   string `query:"product_id" validate:"required"`
	WarehouseID string `query:"warehouse_id" validate:"required"`
	LotNumber   string `query:"lot_number"`
	From        string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ToQuery traduce a la consulta del kardex. to incluye el día completo.
func (r KardexQueryRequest) ToQuery() (inventory.KardexQuery, error) {
	q := inventory.KardexQuery{ProductID: r.ProductID, WarehouseID: r.WarehouseID, LotNumber: r.LotNumber}
	from, err := parseDate("from", r.From)
	if err != nil {
		return q, err
	}
	to, err := parseDate("to", r.To)
	if err != nil {
		return q, err
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	q.From, q.To = from, to
	return q, nil
}

// KardexEntryResponse fila del kardex.
type KardexEntryResponse struct {
	Date        time.Time       `json:"date"`
	MovementID  string          `json:"movement_id"`
	Kind        string          `json:"kind"`
	LotNumber   string          `json:"lot_number"`
	ReferenceID string          `json:"reference_id,omitempty"`
	QuantityIn  int64           `json:"quantity_in"`
	QuantityOut int64           `json:"quantity_out"`
	Balance     int64           `json:"balance"`
	LotBalance  int64           `json:"lot_balance"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// NewKardexEntryResponse convierte una fila.
func NewKardexEntryResponse(e entity.KardexEntry) KardexEntryResponse {
	return KardexEntryResponse{
		Date: e.Date, MovementID: e.MovementID, Kind: string(e.Kind), LotNumber: e.LotNumber,
		ReferenceID: e.ReferenceID, QuantityIn: e.QuantityIn, QuantityOut: e.QuantityOut,
		Balance: e.Balance, LotBalance: e.LotBalance, UnitCost: e.UnitCost, AverageCost: e.AverageCost,
	}
}

// LotsQueryRequest query de GET /api/inventory/lots.
type LotsQueryRequest struct {
	ProductID   string `query:"product_id" validate:"required"`
	WarehouseID string `query:"warehouse_id" validate:"required"`
}

// VerifyRequest body para POST /api/inventory/integrity/verify.
type VerifyRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
}

// ViolationResponse lote cuyo kardex no cuadra.
type ViolationResponse struct {
	LotNumber string `json:"lot_number"`
	LedgerQty int64  `json:"ledger_qty"`
	StoredQty int64  `json:"stored_qty"`
}

// VerifyResponse resultado de la conciliación.
type VerifyResponse struct {
	ProductID   string              `json:"product_id"`
	WarehouseID string              `json:"warehouse_id"`
	CheckedLots int                 `json:"checked_lots"`
	Consistent  bool                `json:"consistent"`
	Violations  []ViolationResponse `json:"violations"`
}

// NewVerifyResponse convierte el reporte.
func NewVerifyResponse(r *inventory.VerifyReport) VerifyResponse {
	out := VerifyResponse{
		ProductID: r.ProductID, WarehouseID: r.WarehouseID, CheckedLots: r.CheckedLots,
		Consistent: len(r.Violations) == 0, Violations: []ViolationResponse{},
	}
	for _, v := range r.Violations {
		out.Violations = append(out.Violations, ViolationResponse{LotNumber: v.LotNumber, LedgerQty: v.LedgerQty, StoredQty: v.StoredQty})
	}
	return out
}
