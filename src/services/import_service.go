package services

import (
	"fmt"
	"io"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/parsers/mercadolibre"
	"github.com/username/cardstock/backend/src/parsers/purchases"
	"github.com/username/cardstock/backend/src/utils"
)

// ImportService runs the two spreadsheet import flows. Preview and
// confirm both re-parse the upload; the handler holds no state between
// the two requests.
type ImportService struct {
	ledger         *ledger.Ledger
	marketParser   *mercadolibre.Parser
	purchaseParser *purchases.Parser
}

func NewImportService(l *ledger.Ledger) *ImportService {
	return &ImportService{
		ledger:         l,
		marketParser:   mercadolibre.NewParser(),
		purchaseParser: purchases.NewParser(),
	}
}

// PreviewMarketplaceSales parses a Mercado Libre sales export and
// partitions its rows against the sales already recorded.
func (s *ImportService) PreviewMarketplaceSales(file io.Reader) (*mercadolibre.Preview, error) {
	existing := mercadolibre.BuildExistingIndex(s.ledger.Sales())
	preview, err := s.marketParser.Parse(file, existing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return preview, nil
}

// ImportMarketplaceSales parses the export and appends the importable
// rows, fanned out per unit, to the sale collection.
func (s *ImportService) ImportMarketplaceSales(file io.Reader) (*ImportResult, error) {
	existing := mercadolibre.BuildExistingIndex(s.ledger.Sales())
	preview, err := s.marketParser.Parse(file, existing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	sales, skipped := mercadolibre.BuildSales(preview, existing, utils.TodayString())
	imported, err := s.ledger.ImportSales(sales)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	logger.L.Info("Marketplace sales imported", "imported", imported, "skipped", skipped)
	return &ImportResult{
		Imported:          imported,
		Skipped:           skipped,
		DuplicateCount:    preview.DuplicateCount,
		UnrecognizedCount: preview.UnrecognizedCount,
	}, nil
}

// PreviewPurchases parses a purchase-history spreadsheet.
func (s *ImportService) PreviewPurchases(file io.Reader) (*purchases.Preview, error) {
	preview, err := s.purchaseParser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return preview, nil
}

// ImportPurchases parses the spreadsheet and appends the recognized
// rows, fanned out per unit, to the purchase collection.
func (s *ImportService) ImportPurchases(file io.Reader) (*ImportResult, error) {
	preview, err := s.purchaseParser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	records, skipped := purchases.BuildPurchases(preview, utils.NewID, utils.TodayString())
	imported, err := s.ledger.ImportPurchases(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}
	logger.L.Info("Purchases imported", "imported", imported, "skipped", skipped)
	return &ImportResult{
		Imported:          imported,
		Skipped:           skipped,
		UnrecognizedCount: preview.UnrecognizedCount,
	}, nil
}
