package production

import (
	"github.com/shopspring/decimal"
)

// LineCost returns price × quantity with no rounding
func LineCost(pricePerUnit, quantity decimal.Decimal) decimal.Decimal {
	return pricePerUnit.Mul(quantity)
}

// BOMTotal sums the stored line costs of items
func BOMTotal(items []BOMItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineCost)
	}
	return total
}

// ProductTotal returns bomCost plus the sum of the additional cost values
func ProductTotal(bomCost decimal.Decimal, additional []AdditionalCost) decimal.Decimal {
	total := bomCost
	for _, c := range additional {
		total = total.Add(c.Value)
	}
	return total
}

// BudgetItemTotal returns unitCost × plannedQuantity
func BudgetItemTotal(unitCost decimal.Decimal, plannedQuantity int) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(plannedQuantity)))
}

// BudgetTotal sums the stored totals of budget items
func BudgetTotal(items []ProductionBudgetItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalCost)
	}
	return total
}
