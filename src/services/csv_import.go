package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/parsers"
	"github.com/username/cardstock/backend/src/utils"
)

// ImportBackupCSV restores records from a CSV produced by ExportCSV. It
// walks the section markers, skips each section's header row and the
// summary block, and appends the parsed records. IDs from the file are
// kept so the restore stays idempotent against a later marketplace
// import.
func (s *ImportService) ImportBackupCSV(file io.Reader) (*ImportResult, error) {
	rows, err := parsers.NewSheetReader().ReadRows(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	var (
		purchases []models.Purchase
		sales     []models.Sale
		section   string
		skipped   int
	)
	for _, row := range rows {
		first := strings.TrimSpace(parsers.Cell(row, 0))
		if first == "" {
			continue
		}
		switch first {
		case sectionPurchases, sectionSales, sectionLosses, sectionSummary:
			section = first
			continue
		}
		if first == "ID" || section == sectionSummary || section == "" {
			continue
		}

		switch section {
		case sectionPurchases:
			p, ok := parsePurchaseRow(row)
			if !ok {
				skipped++
				continue
			}
			purchases = append(purchases, p)
		case sectionSales:
			v, ok := parseSaleRow(row)
			if !ok {
				skipped++
				continue
			}
			sales = append(sales, v)
		case sectionLosses:
			v, ok := parseLossRow(row)
			if !ok {
				skipped++
				continue
			}
			sales = append(sales, v)
		}
	}

	if len(purchases) == 0 && len(sales) == 0 {
		return nil, fmt.Errorf("%w: no COMPRAS or VENTAS section found", ErrParsingFailed)
	}

	imported := 0
	if n, err := s.ledger.ImportPurchases(purchases); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	} else {
		imported += n
	}
	if n, err := s.ledger.ImportSales(sales); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	} else {
		imported += n
	}
	logger.L.Info("Backup CSV restored",
		"purchases", len(purchases), "sales", len(sales), "skipped", skipped)
	return &ImportResult{Imported: imported, Skipped: skipped}, nil
}

func parsePurchaseRow(row []string) (models.Purchase, bool) {
	cardType, ok := models.ParseCardType(parsers.Cell(row, 1))
	if !ok {
		return models.Purchase{}, false
	}
	id := parsers.Cell(row, 0)
	if id == "" {
		id = utils.NewID()
	}
	return models.Purchase{
		ID:           id,
		CardType:     cardType,
		PurchaseDate: parsers.Cell(row, 2),
		PriceUSD:     parsers.ParseLocalizedNumber(parsers.Cell(row, 3)),
		ExchangeRate: parsers.ParseLocalizedNumber(parsers.Cell(row, 4)),
		CostARS:      parsers.ParseLocalizedNumber(parsers.Cell(row, 5)),
		CardCode:     parsers.Cell(row, 6),
		CreatedAt:    utils.TodayString(),
	}, true
}

func parseSaleRow(row []string) (models.Sale, bool) {
	cardType, ok := models.ParseCardType(parsers.Cell(row, 1))
	if !ok {
		return models.Sale{}, false
	}
	id := parsers.Cell(row, 0)
	if id == "" {
		id = utils.NewID()
	}
	platform := parsers.Cell(row, 3)
	switch platform {
	case models.PlatformMercadoLibre, models.PlatformDirect:
	default:
		platform = models.PlatformDirect
	}
	salePrice := parsers.ParseLocalizedNumber(parsers.Cell(row, 6))
	commission := parsers.ParseLocalizedNumber(parsers.Cell(row, 7))
	return models.Sale{
		ID:         id,
		CardType:   cardType,
		SaleDate:   parsers.Cell(row, 2),
		Platform:   platform,
		CardCode:   parsers.Cell(row, 4),
		BuyerName:  parsers.Cell(row, 5),
		SalePrice:  salePrice,
		Commission: commission,
		NetAmount:  salePrice - commission,
		Quantity:   1,
		CreatedAt:  utils.TodayString(),
	}, true
}

func parseLossRow(row []string) (models.Sale, bool) {
	cardType, ok := models.ParseCardType(parsers.Cell(row, 1))
	if !ok {
		return models.Sale{}, false
	}
	id := parsers.Cell(row, 0)
	if id == "" {
		id = utils.NewID()
	}
	return models.Sale{
		ID:        id,
		CardType:  cardType,
		SaleDate:  parsers.Cell(row, 2),
		CardCode:  parsers.Cell(row, 3),
		Platform:  models.PlatformLost,
		Quantity:  1,
		CreatedAt: utils.TodayString(),
	}, true
}
