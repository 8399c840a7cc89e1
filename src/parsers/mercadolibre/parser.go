// Importer for the Mercado Libre sales export (.xlsx). The export has a
// few banner rows before the real header row, localized dates ("18 de
// enero de 2026"), localized numbers and fees reported as negatives.
package mercadolibre

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/parsers"
	"github.com/username/cardstock/backend/src/security/validation"
	"github.com/username/cardstock/backend/src/utils"
)

// headerScanLimit caps the header-row search; the banner block at the
// top of the export is never more than a handful of rows.
const headerScanLimit = 10

var monthNames = map[string]string{
	"enero": "01", "febrero": "02", "marzo": "03", "abril": "04",
	"mayo": "05", "junio": "06", "julio": "07", "agosto": "08",
	"septiembre": "09", "octubre": "10", "noviembre": "11", "diciembre": "12",
}

var spanishDateRe = regexp.MustCompile(`(\d+)\s+de\s+(\w+)\s+de\s+(\d{4})`)

// ParseSpanishDate converts "18 de enero de 2026" (optionally with a
// trailing time) to "2026-01-18". Unparseable input yields "".
func ParseSpanishDate(dateStr string) string {
	if dateStr == "" {
		return ""
	}
	m := spanishDateRe.FindStringSubmatch(dateStr)
	if m == nil {
		return ""
	}
	day := m[1]
	if len(day) == 1 {
		day = "0" + day
	}
	month, ok := monthNames[strings.ToLower(m[2])]
	if !ok {
		month = "01"
	}
	return m[3] + "-" + month + "-" + day
}

// Row is one parsed export line, pre-import. Duplicate and unrecognized
// rows are kept so the user can see what will be skipped.
type Row struct {
	SaleID       string          `json:"saleId"`
	Date         string          `json:"date"`
	Status       string          `json:"status"`
	Units        int             `json:"units"`
	TotalARS     float64         `json:"totalARS"`
	GrossRevenue float64         `json:"grossRevenue"`
	ProductTitle string          `json:"productTitle"`
	BuyerName    string          `json:"buyerName"`
	CardType     models.CardType `json:"cardType,omitempty"`
	Recognized   bool            `json:"recognized"`
	Commission   float64         `json:"commission"`

	CargoVenta  float64 `json:"cargoVenta"`
	CostoFijo   float64 `json:"costoFijo"`
	CostoEnvio  float64 `json:"costoEnvio"`
	Impuestos   float64 `json:"impuestos"`
	Descuentos  float64 `json:"descuentos"`
	Anulaciones float64 `json:"anulaciones"`

	BuyerDNI        string `json:"buyerDNI"`
	BuyerAddress    string `json:"buyerAddress"`
	BuyerCity       string `json:"buyerCity"`
	BuyerState      string `json:"buyerState"`
	BuyerPostalCode string `json:"buyerPostalCode"`
	BuyerCountry    string `json:"buyerCountry"`
	PublicationID   string `json:"publicationId"`

	Duplicate bool `json:"duplicate"`
}

// Preview partitions the parsed rows before the user confirms import.
type Preview struct {
	Rows              []Row `json:"rows"`
	ImportableCount   int   `json:"importableCount"`
	DuplicateCount    int   `json:"duplicateCount"`
	UnrecognizedCount int   `json:"unrecognizedCount"`
}

type Parser struct {
	rows parsers.RowReader
}

func NewParser() *Parser {
	return &Parser{rows: parsers.NewSheetReader()}
}

// ExistingIndex carries the duplicate-detection state derived from the
// sales already in the ledger.
type ExistingIndex struct {
	OrderIDs map[string]bool
	SaleIDs  map[string]bool
}

// BuildExistingIndex extracts ML order IDs and record IDs from the
// current sales. Older records without MLOrderID fall back to the
// "ml-<order>[-n]" ID convention.
func BuildExistingIndex(sales []models.Sale) ExistingIndex {
	idx := ExistingIndex{
		OrderIDs: make(map[string]bool, len(sales)),
		SaleIDs:  make(map[string]bool, len(sales)),
	}
	for _, s := range sales {
		idx.SaleIDs[s.ID] = true
		if s.MLOrderID != "" {
			idx.OrderIDs[s.MLOrderID] = true
			continue
		}
		if rest, ok := strings.CutPrefix(s.ID, "ml-"); ok {
			if i := strings.IndexByte(rest, '-'); i > 0 {
				rest = rest[:i]
			}
			idx.OrderIDs[rest] = true
		}
	}
	return idx
}

// Parse reads the export and partitions its rows against the existing
// sales. Duplicates are sorted to the end for display.
func (p *Parser) Parse(file io.Reader, existing ExistingIndex) (*Preview, error) {
	rows, err := p.rows.ReadRows(file)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", parsers.ErrNoHeaderRow)
	}

	headerIdx := findHeaderRow(rows)
	if headerIdx == -1 {
		return nil, fmt.Errorf("%w: expected a Mercado Libre sales report with a '# de venta' column", parsers.ErrNoHeaderRow)
	}

	headers := parsers.LowerHeaders(rows[headerIdx])
	cols := mapColumns(headers)
	if cols.saleID == -1 {
		return nil, fmt.Errorf("%w: '# de venta' column missing", parsers.ErrNoHeaderRow)
	}
	logger.L.Debug("ML import header mapped", "headerRow", headerIdx, "columns", len(headers))

	var parsed []Row
	for _, raw := range rows[headerIdx+1:] {
		row, ok := parseDataRow(raw, cols)
		if !ok {
			continue
		}
		row.Duplicate = existing.OrderIDs[row.SaleID]
		parsed = append(parsed, row)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return !parsed[i].Duplicate && parsed[j].Duplicate
	})

	preview := &Preview{Rows: parsed}
	for _, r := range parsed {
		switch {
		case r.Duplicate:
			preview.DuplicateCount++
		case !r.Recognized:
			preview.UnrecognizedCount++
		default:
			preview.ImportableCount++
		}
	}
	logger.L.Info("ML import parsed",
		"rows", len(parsed),
		"importable", preview.ImportableCount,
		"duplicates", preview.DuplicateCount,
		"unrecognized", preview.UnrecognizedCount)
	return preview, nil
}

type columnMap struct {
	saleID, date, status, units, revenue, cargoVenta, costoFijo int
	total, title, buyer                                         int
	costoEnvio, impuestos, descuentos, anulaciones              int
	dni, address, city, state, postalCode, country              int
	publicationID                                               int
}

func findHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	// Primary marker first, then the date column as fallback.
	for _, marker := range []string{"# de venta", "#deventa", "nro de venta", "fecha de venta"} {
		for i := 0; i < limit; i++ {
			joined := strings.ToLower(strings.Join(rows[i], " "))
			if strings.Contains(joined, marker) {
				return i
			}
		}
	}
	return -1
}

func mapColumns(headers []string) columnMap {
	cols := columnMap{
		saleID:        parsers.FindColumn(headers, "# de venta", "nro de venta"),
		date:          parsers.FindColumn(headers, "fecha de venta"),
		status:        parsers.FindColumnExact(headers, 0, "estado"),
		units:         parsers.FindColumnExact(headers, 0, "unidades"),
		revenue:       parsers.FindColumn(headers, "ingresos por productos"),
		cargoVenta:    parsers.FindColumn(headers, "cargo por venta"),
		costoFijo:     parsers.FindColumn(headers, "costo fijo"),
		total:         parsers.FindColumn(headers, "total (ars)"),
		title:         parsers.FindColumn(headers, "título de la publicación", "titulo de la publicacion"),
		buyer:         parsers.FindColumnExact(headers, 0, "comprador"),
		costoEnvio:    parsers.FindColumn(headers, "costos de envío", "costos de envio"),
		impuestos:     parsers.FindColumnExact(headers, 0, "impuestos"),
		descuentos:    parsers.FindColumnExact(headers, 0, "descuentos"),
		anulaciones:   parsers.FindColumn(headers, "anulaciones y reembolsos"),
		dni:           parsers.FindColumnExact(headers, 0, "dni"),
		address:       parsers.FindColumnExact(headers, 0, "domicilio"),
		city:          parsers.FindColumnExact(headers, 0, "ciudad"),
		postalCode:    parsers.FindColumn(headers, "código postal", "codigo postal"),
		country:       parsers.FindColumnExact(headers, 0, "país", "pais"),
		publicationID: parsers.FindColumn(headers, "# de publicación", "# de publicacion", "nro de publicación"),
	}
	// The export carries two "Estado" columns: order status first, then
	// the buyer's province. The second one is the address field.
	cols.state = parsers.FindColumnExact(headers, cols.status+1, "estado")
	return cols
}

func parseDataRow(raw []string, cols columnMap) (Row, bool) {
	saleID := parsers.Cell(raw, cols.saleID)
	if saleID == "" {
		return Row{}, false
	}
	// Banner and totals rows repeat words from the header block.
	lowerID := strings.ToLower(saleID)
	if strings.Contains(lowerID, "venta") || strings.Contains(lowerID, "total") {
		return Row{}, false
	}

	grossRevenue := parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.revenue))
	cargoVenta := utils.AbsFloat(parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.cargoVenta)))
	costoFijo := utils.AbsFloat(parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.costoFijo)))
	costoEnvio := utils.AbsFloat(parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.costoEnvio)))
	impuestos := utils.AbsFloat(parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.impuestos)))
	// Descuentos keeps its sign: a discount granted reduces total fees.
	descuentos := parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.descuentos))
	anulaciones := utils.AbsFloat(parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.anulaciones)))

	totalFees := cargoVenta + costoFijo + costoEnvio + impuestos + anulaciones - descuentos

	totalARS := parsers.ParseLocalizedNumber(parsers.Cell(raw, cols.total))
	if totalARS <= 0 && grossRevenue > 0 {
		totalARS = grossRevenue - totalFees
	}
	if grossRevenue <= 0 && totalARS <= 0 {
		return Row{}, false
	}

	title := parsers.Cell(raw, cols.title)
	cardType, recognized := DetectCardType(title)

	row := Row{
		SaleID:       saleID,
		Date:         ParseSpanishDate(parsers.Cell(raw, cols.date)),
		Status:       parsers.Cell(raw, cols.status),
		Units:        parsers.ParseIntCell(parsers.Cell(raw, cols.units), 1),
		TotalARS:     totalARS,
		GrossRevenue: grossRevenue,
		ProductTitle: title,
		BuyerName:    validation.StripUnprintable(parsers.Cell(raw, cols.buyer)),
		CardType:     cardType,
		Recognized:   recognized,
		Commission:   totalFees,

		CargoVenta:  cargoVenta,
		CostoFijo:   costoFijo,
		CostoEnvio:  costoEnvio,
		Impuestos:   impuestos,
		Descuentos:  descuentos,
		Anulaciones: anulaciones,

		BuyerDNI:        parsers.Cell(raw, cols.dni),
		BuyerAddress:    parsers.Cell(raw, cols.address),
		BuyerCity:       parsers.Cell(raw, cols.city),
		BuyerState:      parsers.Cell(raw, cols.state),
		BuyerPostalCode: parsers.Cell(raw, cols.postalCode),
		BuyerCountry:    parsers.Cell(raw, cols.country),
		PublicationID:   parsers.Cell(raw, cols.publicationID),
	}
	return row, true
}

// BuildSales expands the importable preview rows into per-unit Sale
// records. Multi-unit orders fan out into N records with revenue and
// fees divided evenly; per-unit IDs get a 1-based suffix.
func BuildSales(preview *Preview, existing ExistingIndex, createdAt string) (sales []models.Sale, skipped int) {
	for _, row := range preview.Rows {
		if row.Duplicate || !row.Recognized {
			skipped++
			continue
		}
		baseID := "ml-" + row.SaleID
		if existing.SaleIDs[baseID] {
			skipped++
			continue
		}
		units := row.Units
		if units < 1 {
			units = 1
		}
		for i := 0; i < units; i++ {
			id := baseID
			if units > 1 {
				id = fmt.Sprintf("%s-%d", baseID, i+1)
			}
			if existing.SaleIDs[id] {
				skipped++
				continue
			}
			n := float64(units)
			sales = append(sales, models.Sale{
				ID:         id,
				CardType:   row.CardType,
				BuyerName:  row.BuyerName,
				SalePrice:  row.GrossRevenue / n,
				Commission: row.Commission / n,
				NetAmount:  row.TotalARS / n,
				SaleDate:   row.Date,
				Platform:   models.PlatformMercadoLibre,
				Quantity:   1,
				CreatedAt:  createdAt,

				MLCargoVenta:  row.CargoVenta / n,
				MLCostoFijo:   row.CostoFijo / n,
				MLCostoEnvio:  row.CostoEnvio / n,
				MLImpuestos:   row.Impuestos / n,
				MLDescuentos:  row.Descuentos / n,
				MLAnulaciones: row.Anulaciones / n,

				BuyerDNI:        row.BuyerDNI,
				BuyerAddress:    row.BuyerAddress,
				BuyerCity:       row.BuyerCity,
				BuyerState:      row.BuyerState,
				BuyerPostalCode: row.BuyerPostalCode,
				BuyerCountry:    row.BuyerCountry,

				MLOrderID:       row.SaleID,
				MLPublicationID: row.PublicationID,
				MLStatus:        row.Status,
			})
		}
	}
	return sales, skipped
}
