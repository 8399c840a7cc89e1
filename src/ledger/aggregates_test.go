package ledger

import (
	"math"
	"testing"

	"github.com/username/cardstock/backend/src/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRevenueExcludesLostSales(t *testing.T) {
	sales := []models.Sale{
		{Platform: models.PlatformMercadoLibre, SalePrice: 13999, Commission: 3284.84, NetAmount: 13999 - 3284.84},
		{Platform: models.PlatformDirect, SalePrice: 12000, NetAmount: 12000},
		{Platform: models.PlatformLost},
	}

	if got := TotalRevenue(sales); !almostEqual(got, 13999-3284.84+12000) {
		t.Errorf("TotalRevenue = %v", got)
	}
	if got := TotalGrossRevenue(sales); !almostEqual(got, 13999+12000) {
		t.Errorf("TotalGrossRevenue = %v", got)
	}
	if got := TotalCommission(sales); !almostEqual(got, 3284.84) {
		t.Errorf("TotalCommission = %v", got)
	}
}

func TestProfitIsCashFlow(t *testing.T) {
	purchases := []models.Purchase{
		{CardType: models.CardRobux400, CostARS: 5000},
		{CardType: models.CardRobux400, CostARS: 6000},
	}
	sales := []models.Sale{
		{CardType: models.CardRobux400, Platform: models.PlatformDirect, NetAmount: 13999},
	}

	// Revenue minus total spend, even though one unit is still unsold.
	if got := Profit(purchases, sales); !almostEqual(got, 13999-11000) {
		t.Errorf("Profit = %v, want %v", got, 13999-11000)
	}
}

func TestLossValueUsesAverageCostPerType(t *testing.T) {
	purchases := []models.Purchase{
		{CardType: models.CardRobux400, CostARS: 5000},
		{CardType: models.CardRobux400, CostARS: 7000},
		{CardType: models.CardSteam5, CostARS: 6000},
	}
	sales := []models.Sale{
		{CardType: models.CardRobux400, Platform: models.PlatformLost},
		{CardType: models.CardRobux400, Platform: models.PlatformLost},
		{CardType: models.CardSteam5, Platform: models.PlatformDirect, NetAmount: 11999},
	}

	// Two lost 400s at the (5000+7000)/2 average; the Steam sale is real.
	if got := TotalLossValue(purchases, sales); !almostEqual(got, 12000) {
		t.Errorf("TotalLossValue = %v, want 12000", got)
	}
}

func TestLossValueZeroWithoutMatchingPurchases(t *testing.T) {
	sales := []models.Sale{{CardType: models.CardRobux800, Platform: models.PlatformLost}}
	if got := TotalLossValue(nil, sales); got != 0 {
		t.Errorf("TotalLossValue = %v, want 0", got)
	}
}

func TestAvailableStockCountsSoldAndLost(t *testing.T) {
	purchases := []models.Purchase{
		{CardType: models.CardRobux400},
		{CardType: models.CardRobux400},
		{CardType: models.CardRobux400},
		{CardType: models.CardSteam10},
	}
	sales := []models.Sale{
		{CardType: models.CardRobux400, Platform: models.PlatformDirect, Quantity: 1},
		{CardType: models.CardRobux400, Platform: models.PlatformLost, Quantity: 1},
		{CardType: models.CardSteam10, Platform: models.PlatformMercadoLibre, Quantity: 1},
	}

	if got := AvailableStock(purchases, sales, models.CardRobux400); got != 1 {
		t.Errorf("stock 400 = %d, want 1", got)
	}
	if got := AvailableStock(purchases, sales, models.CardSteam10); got != 0 {
		t.Errorf("stock steam10 = %d, want 0", got)
	}

	stock := StockByType(purchases, sales)
	if len(stock) != len(models.AllCardTypes) {
		t.Errorf("StockByType has %d keys, want %d", len(stock), len(models.AllCardTypes))
	}
	if stock["800"] != 0 {
		t.Errorf("stock 800 = %d, want 0", stock["800"])
	}
}

func TestSalesOnCountsRealSalesOnly(t *testing.T) {
	sales := []models.Sale{
		{SaleDate: "2026-01-11", Platform: models.PlatformDirect},
		{SaleDate: "2026-01-11", Platform: models.PlatformMercadoLibre},
		{SaleDate: "2026-01-11", Platform: models.PlatformLost},
		{SaleDate: "2026-01-12", Platform: models.PlatformDirect},
	}
	if got := SalesOn(sales, "2026-01-11"); got != 2 {
		t.Errorf("SalesOn = %d, want 2", got)
	}
}

func TestSummary(t *testing.T) {
	l, _, _ := newTestLedger(t)
	addPurchases(t, l, models.CardRobux400, 2, 5, 1000)
	if _, err := l.AddSale(SaleInput{
		CardType:   models.CardRobux400,
		SalePrice:  13999,
		Commission: 3284.84,
		SaleDate:   "2026-01-11",
		Platform:   models.PlatformMercadoLibre,
	}); err != nil {
		t.Fatalf("AddSale: %v", err)
	}
	if _, err := l.AddSale(SaleInput{
		CardType: models.CardRobux400,
		SaleDate: "2026-01-11",
		Platform: models.PlatformLost,
	}); err != nil {
		t.Fatalf("AddSale(lost): %v", err)
	}

	s := l.Summary()
	if s.PurchaseCount != 2 || s.SaleCount != 1 || s.LostCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", s.PurchaseCount, s.SaleCount, s.LostCount)
	}
	if !almostEqual(s.TotalInvestment, 10000) {
		t.Errorf("TotalInvestment = %v, want 10000", s.TotalInvestment)
	}
	if !almostEqual(s.TotalRevenue, 13999-3284.84) {
		t.Errorf("TotalRevenue = %v", s.TotalRevenue)
	}
	if !almostEqual(s.TotalLossValue, 5000) {
		t.Errorf("TotalLossValue = %v, want 5000 (average cost)", s.TotalLossValue)
	}
	if !almostEqual(s.Profit, s.TotalRevenue-s.TotalInvestment) {
		t.Errorf("Profit = %v, want revenue minus investment", s.Profit)
	}
	if s.Stock["400"] != 0 {
		t.Errorf("stock 400 = %d, want 0", s.Stock["400"])
	}
}
