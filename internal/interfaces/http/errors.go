package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dispensario-api/internal/application/dto"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

// writeError traduce errores del dominio a status HTTP con cuerpo {code, message, details}.
// Los resultados de negocio no se registran; contención e integridad van a warn/error.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, body := mapError(err)
	switch {
	case status == fiber.StatusInternalServerError:
		log.Error().Err(err).Str("route", c.Route().Path).Msg("error interno")
	case status == fiber.StatusServiceUnavailable || status == fiber.StatusLocked:
		log.Warn().Err(err).Str("route", c.Route().Path).Str("code", body.Code).Msg("operación no completada")
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var (
		stock     *domain.InsufficientStockError
		qty       *domain.QuantityError
		over      *domain.OverDeliveryError
		trans     *domain.TransitionError
		integrity *domain.IntegrityError
	)
	switch {
	case errors.As(err, &stock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error(), Details: map[string]any{
			"product_id": stock.ProductID, "warehouse_id": stock.WarehouseID, "lot_number": stock.LotNumber,
			"requested": stock.Requested, "available": stock.Available,
		}}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()}
	case errors.As(err, &over):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "OVER_DELIVERY", Message: err.Error(), Details: map[string]any{
			"pending_item_id": over.PendingItemID, "requested": over.Requested, "pending": over.Pending,
		}}
	case errors.As(err, &trans):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error(), Details: map[string]any{
			"entity": trans.Entity, "id": trans.ID, "from": trans.From, "action": trans.Action,
		}}
	case errors.As(err, &qty):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error(), Details: map[string]any{
			qty.Field: qty.Value,
		}}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrContention):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CONTENTION", Message: "conflicto de concurrencia, reintente la operación"}
	case errors.As(err, &integrity):
		return fiber.StatusLocked, dto.ErrorResponse{Code: "INTEGRITY_VIOLATION", Message: err.Error(), Details: map[string]any{
			"product_id": integrity.ProductID, "warehouse_id": integrity.WarehouseID, "lot_number": integrity.LotNumber,
			"ledger_qty": integrity.LedgerQty, "stored_qty": integrity.StoredQty, "blocked": integrity.Blocked,
		}}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func validationFailed(c *fiber.Ctx, details map[string]any) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: details})
}
