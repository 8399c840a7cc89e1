package ledger

import (
	"fmt"

	"github.com/username/cardstock/backend/src/models"
)

// PurchaseInput is a manual purchase entry from the form.
type PurchaseInput struct {
	CardType     models.CardType
	PriceUSD     float64
	ExchangeRate float64
	CardCode     string
	PurchaseDate string
	Quantity     int
}

// AddPurchase creates Quantity purchase records. CostARS is computed
// here, exactly once, with no rounding before storage.
func (l *Ledger) AddPurchase(in PurchaseInput) ([]models.Purchase, error) {
	if !in.CardType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCardType, in.CardType)
	}
	if in.PriceUSD <= 0 {
		return nil, fmt.Errorf("%w: price in USD is required", ErrInvalidInput)
	}
	if in.ExchangeRate <= 0 {
		return nil, fmt.Errorf("%w: exchange rate is required", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if in.PurchaseDate == "" {
		return nil, fmt.Errorf("%w: purchase date is required", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	created := make([]models.Purchase, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		created = append(created, models.Purchase{
			ID:           l.newID(),
			CardType:     in.CardType,
			PriceUSD:     in.PriceUSD,
			ExchangeRate: in.ExchangeRate,
			CostARS:      in.PriceUSD * in.ExchangeRate,
			CardCode:     in.CardCode,
			PurchaseDate: in.PurchaseDate,
			CreatedAt:    l.nowISO(),
		})
	}
	l.purchases = append(l.purchases, created...)
	if err := l.persistLocked(keyPurchases); err != nil {
		return nil, err
	}
	return created, nil
}

// ImportPurchases appends parser-built purchase records (bulk import).
func (l *Ledger) ImportPurchases(purchases []models.Purchase) (int, error) {
	if len(purchases) == 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purchases = append(l.purchases, purchases...)
	if err := l.persistLocked(keyPurchases); err != nil {
		return 0, err
	}
	return len(purchases), nil
}

// UpdatePurchase corrects a purchase's date or rate. CostARS is
// recomputed from the corrected inputs.
func (l *Ledger) UpdatePurchase(id string, purchaseDate string, priceUSD, exchangeRate float64) (models.Purchase, error) {
	if priceUSD <= 0 || exchangeRate <= 0 {
		return models.Purchase{}, fmt.Errorf("%w: price and exchange rate must be positive", ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.purchases {
		if l.purchases[i].ID != id {
			continue
		}
		if purchaseDate != "" {
			l.purchases[i].PurchaseDate = purchaseDate
		}
		l.purchases[i].PriceUSD = priceUSD
		l.purchases[i].ExchangeRate = exchangeRate
		l.purchases[i].CostARS = priceUSD * exchangeRate
		if err := l.persistLocked(keyPurchases); err != nil {
			return models.Purchase{}, err
		}
		return l.purchases[i], nil
	}
	return models.Purchase{}, fmt.Errorf("%w: purchase %s", ErrNotFound, id)
}

func (l *Ledger) DeletePurchase(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.purchases {
		if l.purchases[i].ID == id {
			l.purchases = append(l.purchases[:i], l.purchases[i+1:]...)
			return l.persistLocked(keyPurchases)
		}
	}
	return fmt.Errorf("%w: purchase %s", ErrNotFound, id)
}

func (l *Ledger) DeleteAllPurchases() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purchases = nil
	return l.persistLocked(keyPurchases)
}

// SaleInput is a manual sale (or loss) entry from the form.
type SaleInput struct {
	CardType   models.CardType
	CardCode   string
	BuyerName  string
	SalePrice  float64
	Commission float64
	SaleDate   string
	Platform   string
	Quantity   int
}

// AddSale creates Quantity single-unit sale records. Lost entries are
// forced to zero revenue. The quantity is clamped against available
// stock before anything is written: either all units fit or the command
// fails whole.
func (l *Ledger) AddSale(in SaleInput) ([]models.Sale, error) {
	if !in.CardType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCardType, in.CardType)
	}
	switch in.Platform {
	case models.PlatformMercadoLibre, models.PlatformDirect, models.PlatformLost:
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, in.Platform)
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if in.SaleDate == "" {
		return nil, fmt.Errorf("%w: sale date is required", ErrInvalidInput)
	}
	if in.Platform != models.PlatformLost && in.SalePrice <= 0 {
		return nil, fmt.Errorf("%w: sale price is required", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	available := AvailableStock(l.purchases, l.sales, in.CardType)
	if in.Quantity > available {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, in.Quantity, available)
	}

	salePrice, commission := in.SalePrice, in.Commission
	if in.Platform == models.PlatformLost {
		salePrice, commission = 0, 0
	}

	created := make([]models.Sale, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		created = append(created, models.Sale{
			ID:         l.newID(),
			CardType:   in.CardType,
			CardCode:   in.CardCode,
			BuyerName:  in.BuyerName,
			SalePrice:  salePrice,
			Commission: commission,
			NetAmount:  salePrice - commission,
			SaleDate:   in.SaleDate,
			Platform:   in.Platform,
			Quantity:   1,
			CreatedAt:  l.nowISO(),
		})
	}
	l.sales = append(l.sales, created...)
	if err := l.persistLocked(keySales); err != nil {
		return nil, err
	}
	return created, nil
}

// ImportSales appends parser-built sale records (marketplace import).
func (l *Ledger) ImportSales(sales []models.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sales = append(l.sales, sales...)
	if err := l.persistLocked(keySales); err != nil {
		return 0, err
	}
	return len(sales), nil
}

// UpdateSale corrects a sale's price or commission. Lost entries stay
// pinned at zero regardless of the submitted values.
func (l *Ledger) UpdateSale(id string, salePrice, commission float64, saleDate string) (models.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.sales {
		if l.sales[i].ID != id {
			continue
		}
		s := &l.sales[i]
		if s.Platform == models.PlatformLost {
			s.SalePrice, s.Commission, s.NetAmount = 0, 0, 0
		} else {
			s.SalePrice = salePrice
			s.Commission = commission
			s.NetAmount = salePrice - commission
		}
		if saleDate != "" {
			s.SaleDate = saleDate
		}
		if err := l.persistLocked(keySales); err != nil {
			return models.Sale{}, err
		}
		return *s, nil
	}
	return models.Sale{}, fmt.Errorf("%w: sale %s", ErrNotFound, id)
}

func (l *Ledger) DeleteSale(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.sales {
		if l.sales[i].ID == id {
			l.sales = append(l.sales[:i], l.sales[i+1:]...)
			return l.persistLocked(keySales)
		}
	}
	return fmt.Errorf("%w: sale %s", ErrNotFound, id)
}

func (l *Ledger) DeleteAllSales() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sales = nil
	return l.persistLocked(keySales)
}

// Purchases returns a copy of the purchase collection.
func (l *Ledger) Purchases() []models.Purchase {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Purchase, len(l.purchases))
	copy(out, l.purchases)
	return out
}

// Sales returns a copy of the sale collection.
func (l *Ledger) Sales() []models.Sale {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Sale, len(l.sales))
	copy(out, l.sales)
	return out
}

// Prices returns copies of the three price maps.
func (l *Ledger) Prices() (cardPrices, salePricesARS, mlCommissions map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyMap(l.cardPrices), copyMap(l.salePricesARS), copyMap(l.mlCommissions)
}

// SetPrices overwrites any subset of the three price maps. Keys are
// normalized to the internal card type ("400 Robux" becomes "400");
// unknown keys are rejected.
func (l *Ledger) SetPrices(cardPrices, salePricesARS, mlCommissions map[string]float64) error {
	var err error
	if cardPrices, err = normalizePriceKeys(cardPrices); err != nil {
		return err
	}
	if salePricesARS, err = normalizePriceKeys(salePricesARS); err != nil {
		return err
	}
	if mlCommissions, err = normalizePriceKeys(mlCommissions); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, 3)
	if len(cardPrices) > 0 {
		l.cardPrices = overlayDefaults(copyMap(l.cardPrices), cardPrices)
		keys = append(keys, keyCardPrices)
	}
	if len(salePricesARS) > 0 {
		l.salePricesARS = overlayDefaults(copyMap(l.salePricesARS), salePricesARS)
		keys = append(keys, keySalePricesARS)
	}
	if len(mlCommissions) > 0 {
		l.mlCommissions = overlayDefaults(copyMap(l.mlCommissions), mlCommissions)
		keys = append(keys, keyMLCommissions)
	}
	if len(keys) == 0 {
		return nil
	}
	return l.persistLocked(keys...)
}

func normalizePriceKeys(m map[string]float64) (map[string]float64, error) {
	if len(m) == 0 {
		return m, nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		cardType, ok := models.ParseCardType(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCardType, k)
		}
		out[string(cardType)] = v
	}
	return out, nil
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
