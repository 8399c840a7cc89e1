package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
)

// Storage keys, one blob per collection. The names match the original
// dataset so a mirrored remote written by an older client stays readable.
const (
	keyPurchases     = "roblox-purchases"
	keySales         = "roblox-sales"
	keyCardPrices    = "roblox-card-prices"
	keyGiftCodes     = "roblox-gift-codes"
	keySalePricesARS = "roblox-sale-prices-ars"
	keyMLCommissions = "roblox-ml-commissions"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidCardType   = errors.New("invalid card type")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("sale quantity exceeds available stock")
)

// Store is the durable key/value backend (sqlite in production).
type Store interface {
	Set(key string, v any) error
	Get(key string, dst any) (bool, error)
	Delete(key string) error
}

// Syncer receives a full dataset snapshot after every mutation. The
// remote pusher debounces and coalesces these; a nil Syncer disables
// mirroring.
type Syncer interface {
	Enqueue(data models.AppData)
}

// Ledger owns the entire dataset. All reads and writes go through its
// command methods; each command mutates in memory, persists the touched
// collections locally and enqueues a remote snapshot.
type Ledger struct {
	mu sync.Mutex

	purchases     []models.Purchase
	sales         []models.Sale
	codes         []models.GiftCardCode
	cardPrices    map[string]float64
	salePricesARS map[string]float64
	mlCommissions map[string]float64

	store  Store
	syncer Syncer

	// loaded guards against clobbering storage with the empty initial
	// state before the startup load has finished.
	loaded bool

	now func() time.Time
}

func New(store Store, syncer Syncer) *Ledger {
	return &Ledger{
		cardPrices:    models.DefaultCardPrices(),
		salePricesARS: models.DefaultSalePricesARS(),
		mlCommissions: models.DefaultMLCommissions(),
		store:         store,
		syncer:        syncer,
		now:           time.Now,
	}
}

// LoadLocal reads every collection from the local store. Missing keys
// keep their defaults. After this returns, mutations start persisting.
func (l *Ledger) LoadLocal() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	type loadTarget struct {
		key string
		dst any
	}
	targets := []loadTarget{
		{keyPurchases, &l.purchases},
		{keySales, &l.sales},
		{keyGiftCodes, &l.codes},
		{keyCardPrices, &l.cardPrices},
		{keySalePricesARS, &l.salePricesARS},
		{keyMLCommissions, &l.mlCommissions},
	}
	for _, t := range targets {
		if _, err := l.store.Get(t.key, t.dst); err != nil {
			return fmt.Errorf("loading %s: %w", t.key, err)
		}
	}
	l.loaded = true
	logger.L.Info("Local dataset loaded",
		"purchases", len(l.purchases),
		"sales", len(l.sales),
		"codes", len(l.codes))
	return nil
}

// Snapshot returns a copy of the full dataset.
func (l *Ledger) Snapshot() models.AppData {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() models.AppData {
	data := models.AppData{
		Purchases:     make([]models.Purchase, len(l.purchases)),
		Sales:         make([]models.Sale, len(l.sales)),
		GiftCardCodes: make([]models.GiftCardCode, len(l.codes)),
		CardPrices:    make(map[string]float64, len(l.cardPrices)),
		SalePricesARS: make(map[string]float64, len(l.salePricesARS)),
		MLCommissions: make(map[string]float64, len(l.mlCommissions)),
	}
	copy(data.Purchases, l.purchases)
	copy(data.Sales, l.sales)
	copy(data.GiftCardCodes, l.codes)
	for k, v := range l.cardPrices {
		data.CardPrices[k] = v
	}
	for k, v := range l.salePricesARS {
		data.SalePricesARS[k] = v
	}
	for k, v := range l.mlCommissions {
		data.MLCommissions[k] = v
	}
	return data
}

// ReplaceAll swaps the whole dataset, typically with the result of a
// remote reconciliation, and persists every collection.
func (l *Ledger) ReplaceAll(data models.AppData) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.purchases = data.Purchases
	l.sales = data.Sales
	l.codes = data.GiftCardCodes
	if len(data.CardPrices) > 0 {
		l.cardPrices = overlayDefaults(models.DefaultCardPrices(), data.CardPrices)
	}
	if len(data.SalePricesARS) > 0 {
		l.salePricesARS = overlayDefaults(models.DefaultSalePricesARS(), data.SalePricesARS)
	}
	if len(data.MLCommissions) > 0 {
		l.mlCommissions = overlayDefaults(models.DefaultMLCommissions(), data.MLCommissions)
	}
	l.loaded = true
	return l.persistLocked(keyPurchases, keySales, keyGiftCodes, keyCardPrices, keySalePricesARS, keyMLCommissions)
}

func overlayDefaults(defaults, overrides map[string]float64) map[string]float64 {
	for k, v := range overrides {
		defaults[k] = v
	}
	return defaults
}

// persistLocked writes the named collections to the local store and
// enqueues a remote snapshot. Called with l.mu held. Only local write
// errors are returned; the remote push reports nothing back.
func (l *Ledger) persistLocked(keys ...string) error {
	if !l.loaded {
		return nil
	}
	for _, key := range keys {
		var v any
		switch key {
		case keyPurchases:
			v = l.purchases
		case keySales:
			v = l.sales
		case keyGiftCodes:
			v = l.codes
		case keyCardPrices:
			v = l.cardPrices
		case keySalePricesARS:
			v = l.salePricesARS
		case keyMLCommissions:
			v = l.mlCommissions
		default:
			return fmt.Errorf("unknown storage key %q", key)
		}
		if err := l.store.Set(key, v); err != nil {
			return err
		}
	}
	if l.syncer != nil {
		l.syncer.Enqueue(l.snapshotLocked())
	}
	return nil
}

func (l *Ledger) newID() string {
	return uuid.NewString()
}

func (l *Ledger) nowISO() string {
	return l.now().UTC().Format(time.RFC3339)
}
