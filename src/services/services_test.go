package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// memStore round-trips values through JSON like the sqlite store does.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *memStore) Get(key string, dst any) (bool, error) {
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *memStore) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New(newMemStore(), nil)
	if err := l.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	return l
}

// seedLedger fills a ledger with purchases, marketplace and direct
// sales, and one lost unit, using rates that produce non-round costs.
func seedLedger(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	adds := []ledger.PurchaseInput{
		{CardType: models.CardRobux400, PriceUSD: 5.17, ExchangeRate: 1147.33, PurchaseDate: "2026-08-01", Quantity: 2},
		{CardType: models.CardRobux800, PriceUSD: 10.34, ExchangeRate: 1152.5, PurchaseDate: "2026-08-03", Quantity: 1, CardCode: "ABCD-EFGH"},
		{CardType: models.CardSteam10, PriceUSD: 11, ExchangeRate: 1150, PurchaseDate: "2026-08-10", Quantity: 1},
	}
	for _, in := range adds {
		if _, err := l.AddPurchase(in); err != nil {
			t.Fatalf("AddPurchase(%v): %v", in.CardType, err)
		}
	}

	sells := []ledger.SaleInput{
		{CardType: models.CardRobux400, SalePrice: 13999, Commission: 3284.84, SaleDate: "2026-08-05",
			Platform: models.PlatformMercadoLibre, BuyerName: "Juan Perez", Quantity: 1},
		{CardType: models.CardRobux800, SalePrice: 27999, SaleDate: "2026-08-07",
			Platform: models.PlatformDirect, CardCode: "ABCD-EFGH", Quantity: 1},
		{CardType: models.CardRobux400, SaleDate: "2026-08-09", Platform: models.PlatformLost, Quantity: 1},
	}
	for _, in := range sells {
		if _, err := l.AddSale(in); err != nil {
			t.Fatalf("AddSale(%v): %v", in.Platform, err)
		}
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestExportImportRoundTripPreservesTotals(t *testing.T) {
	src := newTestLedger(t)
	seedLedger(t, src)

	out, err := NewExportService(src).ExportCSV(ExportFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	for _, marker := range []string{"COMPRAS", "VENTAS", "PERDIDAS", "RESUMEN"} {
		if !strings.Contains(string(out), marker) {
			t.Fatalf("export missing %s section", marker)
		}
	}

	dst := newTestLedger(t)
	res, err := NewImportService(dst).ImportBackupCSV(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ImportBackupCSV: %v", err)
	}
	if res.Skipped != 0 {
		t.Errorf("skipped %d rows restoring a clean backup", res.Skipped)
	}

	want, got := src.Summary(), dst.Summary()
	if got.PurchaseCount != want.PurchaseCount || got.SaleCount != want.SaleCount || got.LostCount != want.LostCount {
		t.Errorf("counts: got %d/%d/%d, want %d/%d/%d",
			got.PurchaseCount, got.SaleCount, got.LostCount,
			want.PurchaseCount, want.SaleCount, want.LostCount)
	}
	if !almostEqual(got.TotalInvestment, want.TotalInvestment) {
		t.Errorf("investment: got %v, want %v", got.TotalInvestment, want.TotalInvestment)
	}
	if !almostEqual(got.TotalRevenue, want.TotalRevenue) {
		t.Errorf("revenue: got %v, want %v", got.TotalRevenue, want.TotalRevenue)
	}
	if !almostEqual(got.Profit, want.Profit) {
		t.Errorf("profit: got %v, want %v", got.Profit, want.Profit)
	}
	if !almostEqual(got.TotalLossValue, want.TotalLossValue) {
		t.Errorf("loss value: got %v, want %v", got.TotalLossValue, want.TotalLossValue)
	}

	// Record identity survives the trip, so restoring twice into the
	// source would be detectable by ID.
	srcIDs := make(map[string]bool)
	for _, p := range src.Purchases() {
		srcIDs[p.ID] = true
	}
	for _, p := range dst.Purchases() {
		if !srcIDs[p.ID] {
			t.Errorf("restored purchase %s has a regenerated ID", p.ID)
		}
	}
}

func TestExportFiltersByTypeAndDate(t *testing.T) {
	l := newTestLedger(t)
	seedLedger(t, l)
	svc := NewExportService(l)

	out, err := svc.ExportCSV(ExportFilter{DataType: "purchases"})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if strings.Contains(string(out), "VENTAS") {
		t.Error("purchases-only export contains a sales section")
	}

	out, err = svc.ExportCSV(ExportFilter{CardType: models.CardSteam10})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if !strings.Contains(string(out), "steam10") || strings.Contains(string(out), ",800,") {
		t.Error("card-type filter leaked other types")
	}

	out, err = svc.ExportCSV(ExportFilter{FromDate: "2026-08-06", ToDate: "2026-08-31"})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if !strings.Contains(string(out), "Total Compras,1") {
		t.Errorf("date filter should keep only the 2026-08-10 purchase:\n%s", out)
	}
}

func TestExportSanitizesFormulaCells(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.AddPurchase(ledger.PurchaseInput{
		CardType: models.CardRobux400, PriceUSD: 5.17, ExchangeRate: 1150,
		PurchaseDate: "2026-08-01", CardCode: "=HYPERLINK(\"http://evil\")",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddSale(ledger.SaleInput{
		CardType: models.CardRobux400, SalePrice: 13999, SaleDate: "2026-08-02",
		Platform: models.PlatformDirect, BuyerName: "+54 9 11 5555",
	}); err != nil {
		t.Fatal(err)
	}

	out, err := NewExportService(l).ExportCSV(ExportFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `'=HYPERLINK`) {
		t.Error("formula card code exported without the text prefix")
	}
	if !strings.Contains(s, "'+54 9 11 5555") {
		t.Error("plus-prefixed buyer name exported without the text prefix")
	}
}

func TestImportBackupRejectsUnrelatedCSV(t *testing.T) {
	l := newTestLedger(t)
	csv := "name,amount\nfoo,12\nbar,30\n"

	_, err := NewImportService(l).ImportBackupCSV(strings.NewReader(csv))
	if !errors.Is(err, ErrParsingFailed) {
		t.Errorf("err = %v, want ErrParsingFailed for a CSV without sections", err)
	}
}

func TestImportBackupSkipsMalformedRows(t *testing.T) {
	l := newTestLedger(t)
	csv := strings.Join([]string{
		"COMPRAS",
		"ID,Tipo,Fecha,Precio USD,Cotizacion,Costo ARS,Codigo",
		"p1,400,2026-08-01,\"5,17\",1150,\"5945,5\",",
		"p2,visa,2026-08-01,5,1150,5750,",
		"",
		"RESUMEN",
		"Total Compras,2",
	}, "\n")

	res, err := NewImportService(l).ImportBackupCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportBackupCSV: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 {
		t.Errorf("imported/skipped = %d/%d, want 1/1", res.Imported, res.Skipped)
	}
	got := l.Purchases()
	if len(got) != 1 || got[0].ID != "p1" || !almostEqual(got[0].CostARS, 5945.5) {
		t.Errorf("restored purchase = %+v", got)
	}
}
