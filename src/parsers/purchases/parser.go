// Importer for the reseller's own purchase-history spreadsheet. The
// schema differs from the marketplace export (fecha, producto, cantidad,
// USD price, cotización, ARS price) and so does the vocabulary, so the
// card-type keyword table is separate from the marketplace one.
package purchases

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/parsers"
)

// productRule maps a product-cell predicate to a card type, evaluated in
// order. The supplier writes "Roblox" as "Reblox" often enough that both
// spellings are matched, and Steam must be checked before Roblox since
// "$10" appears in both product families.
type productRule struct {
	name  string
	match func(product string) bool
	card  models.CardType
}

func steamWith(amounts ...string) func(string) bool {
	return func(product string) bool {
		if !strings.Contains(product, "steam") {
			return false
		}
		for _, a := range amounts {
			if strings.Contains(product, a) {
				return true
			}
		}
		return false
	}
}

func robloxWith(match func(string) bool) func(string) bool {
	return func(product string) bool {
		if !strings.Contains(product, "roblox") && !strings.Contains(product, "reblox") {
			return false
		}
		return match(product)
	}
}

var bare10Re = regexp.MustCompile(`\b10\b`)

var productRules = []productRule{
	{"steam $10", steamWith("10", "$10"), models.CardSteam10},
	{"steam $5", steamWith("5", "$5"), models.CardSteam5},
	{"roblox 400", robloxWith(func(p string) bool { return strings.Contains(p, "400") }), models.CardRobux400},
	{"roblox 800", robloxWith(func(p string) bool { return strings.Contains(p, "800") }), models.CardRobux800},
	{"roblox 1000", robloxWith(func(p string) bool { return strings.Contains(p, "1000") }), models.CardRobux1000},
	{"roblox $10", robloxWith(func(p string) bool {
		return strings.Contains(p, "$10") || strings.Contains(p, "10 usd") || strings.Contains(p, "10usd") || bare10Re.MatchString(p)
	}), models.CardRobux1000},
}

// DetectCardType infers the card type from the product cell.
func DetectCardType(product string) (models.CardType, bool) {
	lower := strings.ToLower(strings.TrimSpace(product))
	if lower == "" {
		return "", false
	}
	for _, rule := range productRules {
		if rule.match(lower) {
			return rule.card, true
		}
	}
	return "", false
}

// excelEpoch is day zero of the 1900 date system (with the Lotus leap
// bug accounted for), used for serial date cells.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	dmyRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	isoRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// ParseDateCell accepts D/M/YYYY, YYYY-MM-DD or an Excel serial number
// and returns an ISO day string; anything else yields "".
func ParseDateCell(value string) string {
	str := strings.TrimSpace(value)
	if str == "" {
		return ""
	}
	if m := dmyRe.FindStringSubmatch(str); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	if m := isoRe.FindString(str); m != "" {
		return m
	}
	if serial, err := strconv.ParseFloat(str, 64); err == nil && serial > 59 && serial < 80000 {
		return excelEpoch.AddDate(0, 0, int(serial)).Format("2006-01-02")
	}
	return ""
}

// Row is one parsed purchase line. Quantity is kept on the row; the
// fan-out into per-unit purchases happens in BuildPurchases.
type Row struct {
	Product      string          `json:"product"`
	CardType     models.CardType `json:"cardType,omitempty"`
	Recognized   bool            `json:"recognized"`
	Date         string          `json:"date"`
	Quantity     int             `json:"quantity"`
	PriceUSD     float64         `json:"priceUSD"`
	ExchangeRate float64         `json:"exchangeRate"`
	CostARS      float64         `json:"costARS"`
}

type Preview struct {
	Rows              []Row `json:"rows"`
	ImportableCount   int   `json:"importableCount"`
	UnrecognizedCount int   `json:"unrecognizedCount"`
}

type Parser struct {
	rows parsers.RowReader
}

func NewParser() *Parser {
	return &Parser{rows: parsers.NewSheetReader()}
}

func (p *Parser) Parse(file io.Reader) (*Preview, error) {
	rows, err := p.rows.ReadRows(file)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file has no data rows", parsers.ErrNoHeaderRow)
	}

	headers := parsers.LowerHeaders(rows[0])
	fechaIdx := parsers.FindColumn(headers, "fecha")
	productoIdx := parsers.FindColumn(headers, "producto")
	cantidadIdx := parsers.FindColumn(headers, "cantidad")
	cotizacionIdx := parsers.FindColumn(headers, "cotiz")
	usdIdx := findUSDColumn(headers, cotizacionIdx)
	arsIdx := findARSColumn(headers, usdIdx, cotizacionIdx)

	if fechaIdx == -1 || productoIdx == -1 {
		return nil, fmt.Errorf("%w: need at least 'fecha' and 'producto' columns, got: %s",
			parsers.ErrNoHeaderRow, strings.Join(headers, ", "))
	}

	preview := &Preview{}
	for _, raw := range rows[1:] {
		product := parsers.Cell(raw, productoIdx)
		if product == "" {
			continue
		}
		cardType, recognized := DetectCardType(product)
		priceUSD := parsers.ParseLocalizedNumber(parsers.Cell(raw, usdIdx))
		rate := parsers.ParseLocalizedNumber(parsers.Cell(raw, cotizacionIdx))
		costARS := parsers.ParseLocalizedNumber(parsers.Cell(raw, arsIdx))

		row := Row{
			Product:      product,
			CardType:     cardType,
			Recognized:   recognized,
			Date:         ParseDateCell(parsers.Cell(raw, fechaIdx)),
			Quantity:     parsers.ParseIntCell(parsers.Cell(raw, cantidadIdx), 1),
			PriceUSD:     priceUSD,
			ExchangeRate: rate,
			CostARS:      costARS,
		}
		preview.Rows = append(preview.Rows, row)
		if recognized {
			preview.ImportableCount += row.Quantity
		} else {
			preview.UnrecognizedCount++
		}
	}
	logger.L.Info("Purchase import parsed",
		"rows", len(preview.Rows),
		"importable", preview.ImportableCount,
		"unrecognized", preview.UnrecognizedCount)
	return preview, nil
}

// The "usd" substring also appears in "cotización usd"; exclude the
// exchange-rate column when locating the unit price.
func findUSDColumn(headers []string, cotizacionIdx int) int {
	for i, h := range headers {
		if i == cotizacionIdx {
			continue
		}
		if strings.Contains(h, "usd") && !strings.Contains(h, "cotiz") {
			return i
		}
	}
	return -1
}

// The ARS price column is found by its currency marker; "precio" alone
// is ambiguous because the USD column is usually "Precio USD".
func findARSColumn(headers []string, usdIdx, cotizacionIdx int) int {
	for i, h := range headers {
		if strings.Contains(h, "ars") {
			return i
		}
	}
	for i, h := range headers {
		if i == usdIdx || i == cotizacionIdx {
			continue
		}
		if strings.Contains(h, "precio") {
			return i
		}
	}
	return -1
}

// BuildPurchases expands recognized rows into per-unit purchase records.
// Per-unit cost comes from the row's ARS price when present, otherwise
// from priceUSD x exchangeRate.
func BuildPurchases(preview *Preview, newID func() string, createdAt string) (purchases []models.Purchase, skipped int) {
	for _, row := range preview.Rows {
		if !row.Recognized {
			skipped++
			continue
		}
		units := row.Quantity
		if units < 1 {
			units = 1
		}
		// The ARS cell is a row total; the USD price and rate are per
		// unit.
		costPerUnit := row.CostARS / float64(units)
		if costPerUnit == 0 && row.PriceUSD > 0 && row.ExchangeRate > 0 {
			costPerUnit = row.PriceUSD * row.ExchangeRate
		}
		for i := 0; i < units; i++ {
			purchases = append(purchases, models.Purchase{
				ID:           newID(),
				CardType:     row.CardType,
				PriceUSD:     row.PriceUSD,
				ExchangeRate: row.ExchangeRate,
				CostARS:      costPerUnit,
				PurchaseDate: row.Date,
				CreatedAt:    createdAt,
			})
		}
	}
	return purchases, skipped
}
