package ledger

import (
	"github.com/username/cardstock/backend/src/models"
)

// The aggregate functions are pure over the record slices and are
// recomputed on every call. Data volumes are hundreds of records, not
// millions; nothing here is worth caching.

// TotalInvestment sums CostARS over all purchases.
func TotalInvestment(purchases []models.Purchase) float64 {
	var total float64
	for _, p := range purchases {
		total += p.CostARS
	}
	return total
}

// TotalRevenue sums NetAmount over real sales. Lost entries never
// contribute to revenue.
func TotalRevenue(sales []models.Sale) float64 {
	var total float64
	for _, s := range sales {
		if s.Platform == models.PlatformLost {
			continue
		}
		total += s.NetAmount
	}
	return total
}

// TotalGrossRevenue sums SalePrice over real sales.
func TotalGrossRevenue(sales []models.Sale) float64 {
	var total float64
	for _, s := range sales {
		if s.Platform == models.PlatformLost {
			continue
		}
		total += s.SalePrice
	}
	return total
}

// TotalCommission sums Commission over real sales.
func TotalCommission(sales []models.Sale) float64 {
	var total float64
	for _, s := range sales {
		if s.Platform == models.PlatformLost {
			continue
		}
		total += s.Commission
	}
	return total
}

// TotalLossValue estimates the cost of lost units. There is no
// purchase-to-sale linkage, only counts, so each lost unit is valued at
// the average CostARS of the purchases sharing its card type; zero when
// no such purchases exist. The average drifts from the true cost when
// purchase prices vary over time.
func TotalLossValue(purchases []models.Purchase, sales []models.Sale) float64 {
	type costAgg struct {
		sum   float64
		count int
	}
	costs := make(map[models.CardType]costAgg)
	for _, p := range purchases {
		agg := costs[p.CardType]
		agg.sum += p.CostARS
		agg.count++
		costs[p.CardType] = agg
	}

	var total float64
	for _, s := range sales {
		if s.Platform != models.PlatformLost {
			continue
		}
		if agg := costs[s.CardType]; agg.count > 0 {
			total += agg.sum / float64(agg.count)
		}
	}
	return total
}

// Profit nets total revenue against total spend, regardless of whether
// the purchased stock has sold yet. This is a cash-flow view, not a
// cost-of-goods-sold P&L.
func Profit(purchases []models.Purchase, sales []models.Sale) float64 {
	return TotalRevenue(sales) - TotalInvestment(purchases)
}

// AvailableStock counts purchased-but-not-yet-sold-or-lost units of a
// card type: purchases minus sold quantity minus lost records.
func AvailableStock(purchases []models.Purchase, sales []models.Sale, t models.CardType) int {
	bought := 0
	for _, p := range purchases {
		if p.CardType == t {
			bought++
		}
	}
	depleted := 0
	for _, s := range sales {
		if s.CardType != t {
			continue
		}
		if s.Platform == models.PlatformLost {
			depleted++
		} else {
			depleted += s.Quantity
		}
	}
	return bought - depleted
}

// StockByType computes available stock for every card type.
func StockByType(purchases []models.Purchase, sales []models.Sale) map[string]int {
	stock := make(map[string]int, len(models.AllCardTypes))
	for _, t := range models.AllCardTypes {
		stock[string(t)] = AvailableStock(purchases, sales, t)
	}
	return stock
}

// SalesOn counts real sales dated on the given YYYY-MM-DD day.
func SalesOn(sales []models.Sale, date string) int {
	count := 0
	for _, s := range sales {
		if s.Platform != models.PlatformLost && s.SaleDate == date {
			count++
		}
	}
	return count
}

// Summary is the aggregate view behind the balance overview.
type Summary struct {
	TotalInvestment float64        `json:"totalInvestment"`
	TotalRevenue    float64        `json:"totalRevenue"`
	TotalGross      float64        `json:"totalGross"`
	TotalCommission float64        `json:"totalCommission"`
	TotalLossValue  float64        `json:"totalLossValue"`
	Profit          float64        `json:"profit"`
	Stock           map[string]int `json:"stock"`
	PurchaseCount   int            `json:"purchaseCount"`
	SaleCount       int            `json:"saleCount"`
	LostCount       int            `json:"lostCount"`
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	lost := 0
	for _, s := range l.sales {
		if s.Platform == models.PlatformLost {
			lost++
		}
	}
	return Summary{
		TotalInvestment: TotalInvestment(l.purchases),
		TotalRevenue:    TotalRevenue(l.sales),
		TotalGross:      TotalGrossRevenue(l.sales),
		TotalCommission: TotalCommission(l.sales),
		TotalLossValue:  TotalLossValue(l.purchases, l.sales),
		Profit:          Profit(l.purchases, l.sales),
		Stock:           StockByType(l.purchases, l.sales),
		PurchaseCount:   len(l.purchases),
		SaleCount:       len(l.sales) - lost,
		LostCount:       lost,
	}
}

// AvailableStockFor exposes the invariant for a single card type.
func (l *Ledger) AvailableStockFor(t models.CardType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return AvailableStock(l.purchases, l.sales, t)
}

// DailySalesCount counts real sales on a YYYY-MM-DD date.
func (l *Ledger) DailySalesCount(date string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return SalesOn(l.sales, date)
}
