package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// UnknownLot es el lote sintético para devoluciones sin lote conocido.
const UnknownLot = "SIN-LOTE"

// LotKey identifica un saldo de lote: (producto, bodega, lote).
type LotKey struct {
	ProductID   string
	WarehouseID string
	LotNumber   string
}

// LotBalance saldo actual de un lote en una bodega (proyección mutable del ledger).
// Quantity nunca es negativa. Blocked se activa al detectar una violación de integridad
// y bloquea toda escritura sobre el lote hasta la conciliación manual.
type LotBalance struct {
	ProductID   string
	WarehouseID string
	LotNumber   string
	Quantity    int64
	UnitCost    decimal.Decimal
	ExpiryDate  *time.Time
	Seq         int64 // orden de creación; desempate FEFO
	Blocked     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key devuelve la identidad del lote.
func (l *LotBalance) Key() LotKey {
	return LotKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID, LotNumber: l.LotNumber}
}

// NormalizeLotNumber lleva el número de lote a su forma canónica (NFKC, sin espacios, mayúsculas).
// Proveedores distintos imprimen el mismo lote con anchos y mayúsculas diferentes.
func NormalizeLotNumber(lot string) string {
	lot = strings.TrimSpace(norm.NFKC.String(lot))
	if lot == "" {
		return ""
	}
	// cases.Caser guarda estado: una instancia por llamada.
	return cases.Upper(language.Und).String(lot)
}

// ExpiresBefore compara vencimientos para FEFO: sin vencimiento se ordena al final.
func ExpiresBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// SameExpiry compara vencimientos por día calendario (la BD guarda DATE).
func SameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
