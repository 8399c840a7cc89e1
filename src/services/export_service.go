package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/security/validation"
)

// ExportFilter narrows the exported dataset. Zero values mean no
// filtering on that axis.
type ExportFilter struct {
	DataType string // "purchases", "sales" or "" for everything
	CardType models.CardType
	FromDate string // inclusive, YYYY-MM-DD
	ToDate   string // inclusive, YYYY-MM-DD
}

// Section markers and headers of the backup CSV. The settings importer
// reads these back, so they stay stable.
const (
	sectionPurchases = "COMPRAS"
	sectionSales     = "VENTAS"
	sectionLosses    = "PERDIDAS"
	sectionSummary   = "RESUMEN"
)

var (
	purchaseHeaders = []string{"ID", "Tipo", "Fecha", "Precio USD", "Cotizacion", "Costo ARS", "Codigo"}
	saleHeaders     = []string{"ID", "Tipo", "Fecha", "Plataforma", "Codigo", "Comprador", "Precio Bruto", "Comision", "Neto"}
	lossHeaders     = []string{"ID", "Tipo", "Fecha", "Codigo"}
)

// ExportService renders the dataset as a sectioned CSV backup.
type ExportService struct {
	ledger *ledger.Ledger
}

func NewExportService(l *ledger.Ledger) *ExportService {
	return &ExportService{ledger: l}
}

// ExportCSV writes the filtered dataset as UTF-8 CSV with a BOM so
// spreadsheet applications pick up the encoding.
func (s *ExportService) ExportCSV(filter ExportFilter) ([]byte, error) {
	purchases := filterPurchases(s.ledger.Purchases(), filter)
	sales, losses := filterSales(s.ledger.Sales(), filter)

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)

	includePurchases := filter.DataType == "" || filter.DataType == "purchases"
	includeSales := filter.DataType == "" || filter.DataType == "sales"

	if includePurchases {
		writeRow(w, sectionPurchases)
		w.Write(purchaseHeaders)
		for _, p := range purchases {
			w.Write([]string{
				p.ID,
				string(p.CardType),
				p.PurchaseDate,
				num(p.PriceUSD),
				num(p.ExchangeRate),
				num(p.CostARS),
				validation.SanitizeForFormulaInjection(p.CardCode),
			})
		}
		writeRow(w)
	}

	if includeSales {
		writeRow(w, sectionSales)
		w.Write(saleHeaders)
		for _, v := range sales {
			w.Write([]string{
				v.ID,
				string(v.CardType),
				v.SaleDate,
				v.Platform,
				validation.SanitizeForFormulaInjection(v.CardCode),
				validation.SanitizeForFormulaInjection(v.BuyerName),
				num(v.SalePrice),
				num(v.Commission),
				num(v.NetAmount),
			})
		}
		writeRow(w)

		writeRow(w, sectionLosses)
		w.Write(lossHeaders)
		for _, v := range losses {
			w.Write([]string{v.ID, string(v.CardType), v.SaleDate, validation.SanitizeForFormulaInjection(v.CardCode)})
		}
		writeRow(w)
	}

	writeRow(w, sectionSummary)
	writeRow(w, "Total Compras", strconv.Itoa(len(purchases)))
	writeRow(w, "Inversion Total", num(ledger.TotalInvestment(purchases)))
	writeRow(w, "Total Ventas", strconv.Itoa(len(sales)))
	writeRow(w, "Ingresos Brutos", num(ledger.TotalGrossRevenue(sales)))
	writeRow(w, "Ingresos Netos", num(ledger.TotalRevenue(sales)))
	writeRow(w, "Total Perdidas", strconv.Itoa(len(losses)))
	writeRow(w, "Valor Perdidas", num(ledger.TotalLossValue(purchases, losses)))
	writeRow(w, "Ganancia", num(ledger.TotalRevenue(sales)-ledger.TotalInvestment(purchases)))

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing CSV export: %w", err)
	}
	logger.L.Info("CSV export generated",
		"purchases", len(purchases), "sales", len(sales), "losses", len(losses))
	return buf.Bytes(), nil
}

// FileName builds the download name, e.g. "balance-2026-09-01.csv".
func (s *ExportService) FileName(date string) string {
	return "balance-" + date + ".csv"
}

func filterPurchases(purchases []models.Purchase, f ExportFilter) []models.Purchase {
	out := purchases[:0:0]
	for _, p := range purchases {
		if f.CardType != "" && p.CardType != f.CardType {
			continue
		}
		if !dateInRange(p.PurchaseDate, f.FromDate, f.ToDate) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func filterSales(all []models.Sale, f ExportFilter) (sales, losses []models.Sale) {
	for _, s := range all {
		if f.CardType != "" && s.CardType != f.CardType {
			continue
		}
		if !dateInRange(s.SaleDate, f.FromDate, f.ToDate) {
			continue
		}
		if s.Platform == models.PlatformLost {
			losses = append(losses, s)
		} else {
			sales = append(sales, s)
		}
	}
	return sales, losses
}

// dateInRange compares ISO day strings lexically, which orders the same
// as chronologically. Records without a date pass every filter.
func dateInRange(date, from, to string) bool {
	if date == "" {
		return true
	}
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}

// num formats monetary values at full precision so a re-imported backup
// reproduces the same totals.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeRow(w *csv.Writer, fields ...string) {
	w.Write(fields)
}
