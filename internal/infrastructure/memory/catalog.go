package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository   = (*Catalog)(nil)
	_ repository.WarehouseRepository = warehouseView{}
)

// Catalog maestro de productos y bodegas en memoria (datos de desarrollo y tests).
type Catalog struct {
	mu         sync.RWMutex
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
}

// NewCatalog crea un catálogo vacío.
func NewCatalog() *Catalog {
	return &Catalog{
		products:   map[string]entity.Product{},
		warehouses: map[string]entity.Warehouse{},
	}
}

// PutProduct crea o reemplaza un producto.
func (c *Catalog) PutProduct(p entity.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// PutWarehouse crea o reemplaza una bodega.
func (c *Catalog) PutWarehouse(w entity.Warehouse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warehouses[w.ID] = w
}

// GetByID implementa ProductRepository; nil, nil si no existe.
func (c *Catalog) GetByID(_ context.Context, id string) (*entity.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Warehouses adaptador de WarehouseRepository (GetByID choca con el de productos).
func (c *Catalog) Warehouses() repository.WarehouseRepository {
	return warehouseView{c: c}
}

type warehouseView struct{ c *Catalog }

func (w warehouseView) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	w.c.mu.RLock()
	defer w.c.mu.RUnlock()
	wh, ok := w.c.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &wh, nil
}
