package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado después de una entrada (servicio de dominio).
// NuevoCosto = ((Saldo * CostoActual) + (CantEntrada * CostoEntrada)) / (Saldo + CantEntrada)
func WeightedAverageCost(balance int64, currentCost decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	total := balance + inQty
	if total <= 0 {
		return decimal.Zero
	}
	bal := decimal.NewFromInt(balance)
	in := decimal.NewFromInt(inQty)
	num := bal.Mul(currentCost).Add(in.Mul(inCost))
	return num.Div(decimal.NewFromInt(total)).Round(4)
}
