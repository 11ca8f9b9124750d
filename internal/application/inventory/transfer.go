package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

// CreateTransferInput solicitud de traslado entre bodegas.
type CreateTransferInput struct {
	FromWarehouseID string
	ToWarehouseID   string
	Notes           string
	UserID          string
	Items           []entity.TransferItem
}

// TransferEvent cambio de estado publicado tras cada transición confirmada.
type TransferEvent struct {
	TransferID      string    `json:"transfer_id"`
	FromWarehouseID string    `json:"from_warehouse_id"`
	ToWarehouseID   string    `json:"to_warehouse_id"`
	From            string    `json:"from_status"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// TransferUseCase máquina de estados de traslados.
type TransferUseCase struct {
	*engine
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(d Deps) *TransferUseCase {
	return &TransferUseCase{engine: newEngine(d)}
}

// Create registra el traslado en PENDING. El stock no se mueve hasta SEND.
func (uc *TransferUseCase) Create(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, fmt.Errorf("origen y destino deben ser distintos: %w", domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("traslado sin ítems: %w", domain.ErrInvalidInput)
	}
	if err := uc.requireWarehouse(ctx, in.FromWarehouseID); err != nil {
		return nil, err
	}
	if err := uc.requireWarehouse(ctx, in.ToWarehouseID); err != nil {
		return nil, err
	}
	items := make([]entity.TransferItem, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, &domain.QuantityError{Field: fmt.Sprintf("items[%d].quantity", i), Value: it.Quantity}
		}
		if err := uc.requireProduct(ctx, it.ProductID); err != nil {
			return nil, err
		}
		it.LotNumber = entity.NormalizeLotNumber(it.LotNumber)
		items[i] = it
	}

	now := uc.now()
	t := &entity.Transfer{
		ID:              uc.newID(),
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Status:          entity.TransferPending,
		Items:           items,
		Notes:           in.Notes,
		CreatedBy:       in.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := uc.execute(ctx, "transfer_create", func(repos Repos) error {
		return repos.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, EventTransferStatusChanged, transferEvent(t, ""))
	return t, nil
}

// Send descuenta en origen todos los ítems (PENDING → IN_TRANSIT). Si un ítem no alcanza no se envía nada.
func (uc *TransferUseCase) Send(ctx context.Context, id, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, "transfer_send", id, userID, entity.TransferSend, func(ledger *lotLedger, t *entity.Transfer, _ entity.TransferStatus) error {
		lines := make([]entity.TransferLine, 0, len(t.Items))
		for _, it := range t.Items {
			drawn, err := ledger.draw(ctx, it.ProductID, t.FromWarehouseID, it.LotNumber, it.Quantity, entity.MovementTransferOut, t.ID)
			if err != nil {
				return err
			}
			for _, d := range drawn {
				lines = append(lines, entity.TransferLine{
					ProductID:  d.ProductID,
					LotNumber:  d.LotNumber,
					Quantity:   d.Quantity,
					UnitCost:   d.UnitCost,
					ExpiryDate: d.ExpiryDate,
				})
			}
		}
		t.Lines = lines
		return nil
	})
}

// Receive acredita en destino los mismos lotes descontados al enviar (IN_TRANSIT → RECEIVED).
func (uc *TransferUseCase) Receive(ctx context.Context, id, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, "transfer_receive", id, userID, entity.TransferReceive, func(ledger *lotLedger, t *entity.Transfer, _ entity.TransferStatus) error {
		return creditLines(ctx, ledger, t, t.ToWarehouseID)
	})
}

// Cancel anula el traslado. Desde IN_TRANSIT devuelve al origen exactamente lo descontado.
func (uc *TransferUseCase) Cancel(ctx context.Context, id, userID string) (*entity.Transfer, error) {
	return uc.transition(ctx, "transfer_cancel", id, userID, entity.TransferCancel, func(ledger *lotLedger, t *entity.Transfer, from entity.TransferStatus) error {
		if from != entity.TransferInTransit {
			return nil
		}
		return creditLines(ctx, ledger, t, t.FromWarehouseID)
	})
}

// Get devuelve el traslado o ErrNotFound.
func (uc *TransferUseCase) Get(ctx context.Context, id string) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := uc.view(ctx, "transfer_get", func(repos Repos) error {
		t, err := repos.Transfers.Get(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
		}
		out = t
		return nil
	})
	return out, err
}

// transition bloquea el traslado, valida la acción y aplica el efecto en stock en una sola transacción.
func (uc *TransferUseCase) transition(ctx context.Context, op, id, userID string, action entity.TransferAction,
	effect func(*lotLedger, *entity.Transfer, entity.TransferStatus) error) (*entity.Transfer, error) {
	if id == "" {
		return nil, fmt.Errorf("transfer_id requerido: %w", domain.ErrInvalidInput)
	}
	var (
		out  *entity.Transfer
		from entity.TransferStatus
	)
	err := uc.execute(ctx, op, func(repos Repos) error {
		t, err := repos.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
		}
		ledger := uc.ledger(repos, userID)
		from = t.Status
		if err := t.Apply(action, ledger.now); err != nil {
			return err
		}
		if err := effect(ledger, t, from); err != nil {
			return err
		}
		if err := repos.Transfers.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, EventTransferStatusChanged, transferEvent(out, from))
	return out, nil
}

func creditLines(ctx context.Context, ledger *lotLedger, t *entity.Transfer, warehouseID string) error {
	for _, l := range t.Lines {
		_, err := ledger.credit(ctx, creditInput{
			Key:        entity.LotKey{ProductID: l.ProductID, WarehouseID: warehouseID, LotNumber: l.LotNumber},
			Quantity:   l.Quantity,
			UnitCost:   l.UnitCost,
			ExpiryDate: l.ExpiryDate,
			Kind:       entity.MovementTransferIn,
			Reference:  t.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func transferEvent(t *entity.Transfer, from entity.TransferStatus) TransferEvent {
	return TransferEvent{
		TransferID:      t.ID,
		FromWarehouseID: t.FromWarehouseID,
		ToWarehouseID:   t.ToWarehouseID,
		From:            string(from),
		Status:          string(t.Status),
		OccurredAt:      t.UpdatedAt,
	}
}
