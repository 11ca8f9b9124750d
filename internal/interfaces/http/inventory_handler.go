package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dispensario-api/internal/application/dto"
	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

// InventoryHandler maneja entradas, dispensaciones, devoluciones y consultas del inventario (protegido).
type InventoryHandler struct {
	receipts  *inventory.ReceiptUseCase
	dispenses *inventory.DispenseUseCase
	returns   *inventory.ReturnUseCase
	kardex    *inventory.KardexUseCase
	log       *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	receipts *inventory.ReceiptUseCase,
	dispenses *inventory.DispenseUseCase,
	returns *inventory.ReturnUseCase,
	kardex *inventory.KardexUseCase,
	log *logger.Logger,
) *InventoryHandler {
	return &InventoryHandler{receipts: receipts, dispenses: dispenses, returns: returns, kardex: kardex, log: log}
}

// Receive godoc
// @Summary      Registrar entrada de mercancía
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "Bodega, referencia del proveedor e ítems por lote"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	input, err := in.ToInput(GetUserID(c))
	if err != nil {
		return validationFailed(c, map[string]any{"expiry_date": err.Error()})
	}
	res, err := h.receipts.Receive(c.UserContext(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DocumentResponse{DocumentID: res.DocumentID, Lots: dto.NewLotResponses(res.Lots)})
}

// Dispense godoc
// @Summary      Dispensar fórmula
// @Description  Entrega todas las líneas o ninguna. Los faltantes abren o aumentan un pendiente del paciente.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DispenseRequest  true  "Paciente, fórmula e ítems"
// @Success      201   {object}  dto.DispenseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/dispensations [post]
func (h *InventoryHandler) Dispense(c *fiber.Ctx) error {
	var in dto.DispenseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	res, err := h.dispenses.Dispense(c.UserContext(), in.ToInput(GetUserID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewDispenseResponse(res))
}

// Return godoc
// @Summary      Registrar devolución
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReturnRequest  true  "Bodega, origen e ítems; sin lote se usa SIN-LOTE"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	res, err := h.returns.Return(c.UserContext(), in.ToInput(GetUserID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DocumentResponse{DocumentID: res.DocumentID, Lots: dto.NewLotResponses(res.Lots)})
}

// Kardex godoc
// @Summary      Kardex de un producto en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  true   "Producto"
// @Param        warehouse_id  query  string  true   "Bodega"
// @Param        lot_number    query  string  false  "Lote"
// @Param        from          query  string  false  "Desde (AAAA-MM-DD)"
// @Param        to            query  string  false  "Hasta (AAAA-MM-DD, inclusive)"
// @Success      200  {object}  dto.ListResponse[dto.KardexEntryResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/kardex [get]
func (h *InventoryHandler) Kardex(c *fiber.Ctx) error {
	var in dto.KardexQueryRequest
	if err := c.QueryParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	q, err := in.ToQuery()
	if err != nil {
		return validationFailed(c, map[string]any{"date": err.Error()})
	}
	seq, err := h.kardex.Reconstruct(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var entries []dto.KardexEntryResponse
	for e := range seq {
		entries = append(entries, dto.NewKardexEntryResponse(e))
	}
	return c.JSON(dto.NewList(entries))
}

// Lots godoc
// @Summary      Lotes con saldo en orden FEFO
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  true  "Producto"
// @Param        warehouse_id  query  string  true  "Bodega"
// @Success      200  {object}  dto.ListResponse[dto.LotResponse]
// @Router       /api/inventory/lots [get]
func (h *InventoryHandler) Lots(c *fiber.Ctx) error {
	var in dto.LotsQueryRequest
	if err := c.QueryParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	lots, err := h.kardex.ListLots(c.UserContext(), in.ProductID, in.WarehouseID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.NewLotResponses(lots)))
}

// Verify godoc
// @Summary      Conciliar kardex contra saldos de lote
// @Description  Los lotes que no cuadran quedan bloqueados hasta la conciliación manual.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.VerifyRequest  true  "Producto y bodega"
// @Success      200   {object}  dto.VerifyResponse
// @Failure      423   {object}  dto.VerifyResponse
// @Router       /api/inventory/integrity/verify [post]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	var in dto.VerifyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	report, err := h.kardex.Verify(c.UserContext(), in.ProductID, in.WarehouseID)
	if err != nil {
		var integrity *domain.IntegrityError
		if report != nil && errors.As(err, &integrity) {
			return c.Status(fiber.StatusLocked).JSON(dto.NewVerifyResponse(report))
		}
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewVerifyResponse(report))
}

// LotQuantity godoc
// @Summary      Saldo de un lote
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  true  "Producto"
// @Param        warehouse_id  query  string  true  "Bodega"
// @Param        lot           path   string  true  "Lote"
// @Success      200  {object}  map[string]any
// @Router       /api/inventory/lots/{lot}/quantity [get]
func (h *InventoryHandler) LotQuantity(c *fiber.Ctx) error {
	var in dto.LotsQueryRequest
	if err := c.QueryParser(&in); err != nil {
		return badBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	key := entity.LotKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID, LotNumber: entity.NormalizeLotNumber(c.Params("lot"))}
	qty, err := h.kardex.GetQuantity(c.UserContext(), key)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"product_id": key.ProductID, "warehouse_id": key.WarehouseID, "lot_number": key.LotNumber, "quantity": qty,
	})
}
