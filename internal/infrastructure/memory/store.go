// Package memory implementa el almacenamiento del inventario en proceso: cada transacción
// trabaja sobre una copia del estado y la publica solo si fn termina sin error.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jhoicas/dispensario-api/internal/application/inventory"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// ErrReadOnly escritura dentro de una transacción de solo lectura.
var ErrReadOnly = errors.New("memory: transacción de solo lectura")

type state struct {
	lots      map[entity.LotKey]entity.LotBalance
	movements []entity.MovementRecord
	transfers map[string]entity.Transfer
	pending   map[string]entity.PendingItem
	documents map[string]entity.Document
	lotSeq    int64
	movSeq    int64
}

func newState() state {
	return state{
		lots:      map[entity.LotKey]entity.LotBalance{},
		transfers: map[string]entity.Transfer{},
		pending:   map[string]entity.PendingItem{},
		documents: map[string]entity.Document{},
	}
}

// clone copia lo mutable. Los movimientos son append-only: basta con limitar la capacidad.
func (s state) clone() state {
	c := state{
		lots:      make(map[entity.LotKey]entity.LotBalance, len(s.lots)),
		movements: s.movements[:len(s.movements):len(s.movements)],
		transfers: make(map[string]entity.Transfer, len(s.transfers)),
		pending:   make(map[string]entity.PendingItem, len(s.pending)),
		documents: make(map[string]entity.Document, len(s.documents)),
		lotSeq:    s.lotSeq,
		movSeq:    s.movSeq,
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = cloneTransfer(v)
	}
	for k, v := range s.pending {
		c.pending[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	return c
}

func cloneTransfer(t entity.Transfer) entity.Transfer {
	t.Items = append([]entity.TransferItem(nil), t.Items...)
	t.Lines = append([]entity.TransferLine(nil), t.Lines...)
	return t
}

// Store almacenamiento transaccional en memoria. Las escrituras se serializan con un único
// lock exclusivo; las lecturas comparten el lock y ven un snapshot.
type Store struct {
	mu      sync.RWMutex
	state   state
	catalog *Catalog
}

// NewStore crea un almacenamiento vacío con su catálogo de productos y bodegas.
func NewStore() *Store {
	return &Store{state: newState(), catalog: NewCatalog()}
}

// Catalog resuelve productos y bodegas para el motor.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Run ejecuta fn sobre una copia del estado y la confirma si fn no falla y ctx sigue vigente.
func (s *Store) Run(ctx context.Context, fn func(inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{state: s.state.clone()}
	if err := fn(tx.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.state = tx.state
	return nil
}

// View ejecuta fn sobre un snapshot de solo lectura.
func (s *Store) View(ctx context.Context, fn func(inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	tx := &tx{state: snapshot, readOnly: true}
	return fn(tx.repos())
}

type tx struct {
	state    state
	readOnly bool
}

func (t *tx) repos() inventory.Repos {
	return inventory.Repos{
		Lots:         &lotRepo{tx: t},
		Movements:    &movementRepo{tx: t},
		Transfers:    &transferRepo{tx: t},
		PendingItems: &pendingRepo{tx: t},
		Documents:    &documentRepo{tx: t},
	}
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}
