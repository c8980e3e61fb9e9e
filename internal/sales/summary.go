package sales

import "github.com/shopspring/decimal"

// Summary holds the totals shown above the sales table, all in CZK.
type Summary struct {
	PurchaseTotal decimal.Decimal `json:"purchaseTotal"`
	SellingTotal  decimal.Decimal `json:"sellingTotal"`
	ProfitTotal   decimal.Decimal `json:"profitTotal"`
	Count         int             `json:"count"`
}

// Summarize totals records at the given PLN to CZK rate. Nothing is rounded.
func Summarize(records []*Sale, rate float64) Summary {
	r := decimal.NewFromFloat(rate)
	sum := Summary{
		PurchaseTotal: decimal.Zero,
		SellingTotal:  decimal.Zero,
		ProfitTotal:   decimal.Zero,
	}

	for _, sale := range records {
		if sale == nil {
			continue
		}
		purchase := decimal.NewFromFloat(sale.PurchasePricePLN).Mul(r)
		selling := decimal.NewFromFloat(sale.SalePriceCZK)

		profit := selling.Sub(purchase)
		if p := sale.Profit(rate); p.Stored {
			profit = decimal.NewFromFloat(p.Value)
		}

		sum.PurchaseTotal = sum.PurchaseTotal.Add(purchase)
		sum.SellingTotal = sum.SellingTotal.Add(selling)
		sum.ProfitTotal = sum.ProfitTotal.Add(profit)
		sum.Count++
	}
	return sum
}
