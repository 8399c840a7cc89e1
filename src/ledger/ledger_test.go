package ledger

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// memStore is an in-memory Store recording which keys were written.
type memStore struct {
	data map[string][]byte
	sets []string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.sets = append(m.sets, key)
	return nil
}

func (m *memStore) Get(key string, dst any) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

// captureSyncer records every snapshot handed to the mirror.
type captureSyncer struct {
	snapshots []models.AppData
}

func (c *captureSyncer) Enqueue(data models.AppData) {
	c.snapshots = append(c.snapshots, data)
}

func newTestLedger(t *testing.T) (*Ledger, *memStore, *captureSyncer) {
	t.Helper()
	store := newMemStore()
	syncer := &captureSyncer{}
	l := New(store, syncer)
	if err := l.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	return l, store, syncer
}

func addPurchases(t *testing.T, l *Ledger, cardType models.CardType, n int, priceUSD, rate float64) {
	t.Helper()
	_, err := l.AddPurchase(PurchaseInput{
		CardType:     cardType,
		PriceUSD:     priceUSD,
		ExchangeRate: rate,
		PurchaseDate: "2026-01-10",
		Quantity:     n,
	})
	if err != nil {
		t.Fatalf("AddPurchase: %v", err)
	}
}

func TestMutationsBeforeLoadDoNotPersist(t *testing.T) {
	store := newMemStore()
	l := New(store, nil)

	if _, err := l.AddPurchase(PurchaseInput{
		CardType:     models.CardRobux400,
		PriceUSD:     5,
		ExchangeRate: 1000,
		PurchaseDate: "2026-01-10",
	}); err != nil {
		t.Fatalf("AddPurchase: %v", err)
	}
	if len(store.sets) != 0 {
		t.Fatalf("expected no writes before LoadLocal, got %v", store.sets)
	}
}

func TestLoadLocalKeepsDefaultsForMissingKeys(t *testing.T) {
	l, _, _ := newTestLedger(t)

	cardPrices, salePricesARS, mlCommissions := l.Prices()
	if cardPrices["400"] != 5.17 {
		t.Errorf("cardPrices[400] = %v, want 5.17", cardPrices["400"])
	}
	if salePricesARS["1000"] != 34999 {
		t.Errorf("salePricesARS[1000] = %v, want 34999", salePricesARS["1000"])
	}
	if mlCommissions["steam10"] != 5800 {
		t.Errorf("mlCommissions[steam10] = %v, want 5800", mlCommissions["steam10"])
	}
}

func TestLoadLocalReadsStoredCollections(t *testing.T) {
	store := newMemStore()
	store.Set(keyPurchases, []models.Purchase{
		{ID: "p1", CardType: models.CardRobux800, CostARS: 12000},
	})
	store.sets = nil

	l := New(store, nil)
	if err := l.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	got := l.Purchases()
	if len(got) != 1 || got[0].ID != "p1" || got[0].CostARS != 12000 {
		t.Fatalf("Purchases() = %+v, want the stored record", got)
	}
}

func TestReplaceAllOverlaysPricesOntoDefaults(t *testing.T) {
	l, store, _ := newTestLedger(t)

	err := l.ReplaceAll(models.AppData{
		Purchases:  []models.Purchase{{ID: "p1", CardType: models.CardRobux400}},
		CardPrices: map[string]float64{"400": 6},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	cardPrices, _, _ := l.Prices()
	if cardPrices["400"] != 6 {
		t.Errorf("cardPrices[400] = %v, want override 6", cardPrices["400"])
	}
	if cardPrices["steam5"] != 5 {
		t.Errorf("cardPrices[steam5] = %v, want default 5", cardPrices["steam5"])
	}
	if _, ok := store.data[keyPurchases]; !ok {
		t.Error("ReplaceAll did not persist purchases")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l, _, _ := newTestLedger(t)
	addPurchases(t, l, models.CardRobux400, 1, 5, 1000)

	snap := l.Snapshot()
	snap.Purchases[0].CostARS = -1
	snap.CardPrices["400"] = -1

	if l.Purchases()[0].CostARS == -1 {
		t.Error("mutating the snapshot leaked into the ledger's purchases")
	}
	cardPrices, _, _ := l.Prices()
	if cardPrices["400"] == -1 {
		t.Error("mutating the snapshot leaked into the ledger's prices")
	}
}

func TestEveryMutationEnqueuesASnapshot(t *testing.T) {
	l, _, syncer := newTestLedger(t)

	addPurchases(t, l, models.CardRobux400, 2, 5, 1000)
	if _, err := l.AddSale(SaleInput{
		CardType:  models.CardRobux400,
		SalePrice: 13999,
		SaleDate:  "2026-01-11",
		Platform:  models.PlatformDirect,
	}); err != nil {
		t.Fatalf("AddSale: %v", err)
	}

	if len(syncer.snapshots) != 2 {
		t.Fatalf("expected 2 enqueued snapshots, got %d", len(syncer.snapshots))
	}
	last := syncer.snapshots[len(syncer.snapshots)-1]
	if len(last.Purchases) != 2 || len(last.Sales) != 1 {
		t.Errorf("last snapshot has %d purchases and %d sales, want 2 and 1",
			len(last.Purchases), len(last.Sales))
	}
}
