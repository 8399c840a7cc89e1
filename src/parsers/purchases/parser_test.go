package purchases

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubRows struct {
	rows [][]string
}

func (s stubRows) ReadRows(io.Reader) ([][]string, error) {
	return s.rows, nil
}

func TestDetectCardType(t *testing.T) {
	tests := []struct {
		product string
		want    models.CardType
		wantOK  bool
	}{
		{"Roblox 400", models.CardRobux400, true},
		{"roblox 800 robux", models.CardRobux800, true},
		{"Roblox 1000", models.CardRobux1000, true},
		// The supplier misspells Roblox as Reblox.
		{"Reblox 400", models.CardRobux400, true},
		{"Roblox $10", models.CardRobux1000, true},
		{"Roblox 10 usd", models.CardRobux1000, true},
		{"Steam $5", models.CardSteam5, true},
		{"Steam 10", models.CardSteam10, true},
		// Steam wins when both product words appear with a 10.
		{"steam y roblox 10", models.CardSteam10, true},
		{"Netflix $10", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := DetectCardType(tc.product)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("DetectCardType(%q) = (%q, %t), want (%q, %t)", tc.product, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestParseDateCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15/1/2026", "2026-01-15"},
		{"3/12/2025", "2025-12-03"},
		{"2026-01-15", "2026-01-15"},
		// Excel serial date: 45962 is 2025-11-01.
		{"45962", "2025-11-01"},
		{"", ""},
		{"mañana", ""},
		// Serial values outside the plausible window are not dates.
		{"12", ""},
	}
	for _, tc := range tests {
		if got := ParseDateCell(tc.in); got != tc.want {
			t.Errorf("ParseDateCell(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func historyRows() [][]string {
	return [][]string{
		{"Fecha", "Producto", "Cantidad", "Precio USD", "Cotización", "Precio ARS"},
		{"15/1/2026", "Roblox 400", "2", "5,17", "1150", "11891"},
		{"16/1/2026", "Steam $10", "1", "11", "1150", ""},
		{"17/1/2026", "Netflix $10", "1", "8", "1150", "9200"},
	}
}

func parseHistory(t *testing.T) *Preview {
	t.Helper()
	p := &Parser{rows: stubRows{rows: historyRows()}}
	preview, err := p.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return preview
}

func TestParseHistory(t *testing.T) {
	preview := parseHistory(t)

	if len(preview.Rows) != 3 {
		t.Fatalf("parsed %d rows, want 3", len(preview.Rows))
	}
	// ImportableCount counts units, not rows.
	if preview.ImportableCount != 3 || preview.UnrecognizedCount != 1 {
		t.Errorf("counts = %d importable, %d unrecognized, want 3 and 1",
			preview.ImportableCount, preview.UnrecognizedCount)
	}

	first := preview.Rows[0]
	if first.CardType != models.CardRobux400 || first.Date != "2026-01-15" || first.Quantity != 2 {
		t.Errorf("first row = %+v", first)
	}
	if first.PriceUSD != 5.17 || first.ExchangeRate != 1150 || first.CostARS != 11891 {
		t.Errorf("first row money = %v/%v/%v", first.PriceUSD, first.ExchangeRate, first.CostARS)
	}
}

func TestParseNeedsFechaAndProducto(t *testing.T) {
	p := &Parser{rows: stubRows{rows: [][]string{
		{"Columna A", "Columna B"},
		{"1", "2"},
	}}}
	if _, err := p.Parse(strings.NewReader("")); err == nil {
		t.Fatal("Parse succeeded without fecha/producto columns")
	}
}

func TestBuildPurchasesSplitsRowTotal(t *testing.T) {
	preview := parseHistory(t)

	seq := 0
	newID := func() string {
		seq++
		return string(rune('a' + seq - 1))
	}
	purchases, skipped := BuildPurchases(preview, newID, "2026-01-20")
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(purchases) != 3 {
		t.Fatalf("built %d purchases, want 3", len(purchases))
	}

	// The ARS cell is a row total: 11891 over 2 units.
	for _, p := range purchases[:2] {
		if p.CostARS != 11891.0/2 {
			t.Errorf("per-unit CostARS = %v, want %v", p.CostARS, 11891.0/2)
		}
		if p.CardType != models.CardRobux400 {
			t.Errorf("CardType = %q", p.CardType)
		}
	}

	// No ARS cell: fall back to priceUSD x exchangeRate per unit.
	steam := purchases[2]
	if steam.CardType != models.CardSteam10 {
		t.Fatalf("third purchase = %+v", steam)
	}
	if steam.CostARS != 11*1150.0 {
		t.Errorf("fallback CostARS = %v, want %v", steam.CostARS, 11*1150.0)
	}
	if purchases[0].ID == purchases[1].ID {
		t.Error("fanned-out purchases share an ID")
	}
}
