package rates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/username/cardstock/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func bluelyticsServer(t *testing.T, rate float64, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		fmt.Fprintf(w, `{"blue":{"value_buy":%.2f,"value_sell":%.2f},"oficial":{"value_sell":1000}}`, rate-50, rate)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func downServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrentUsesPrimarySource(t *testing.T) {
	primary := bluelyticsServer(t, 1355, nil)
	g := NewGateway(primary.URL, "http://127.0.0.1:0", time.Second, time.Minute)

	if got := g.Current(context.Background()); got != 1355 {
		t.Errorf("Current() = %v, want 1355", got)
	}
}

func TestCurrentFallsBackToAlternativeSource(t *testing.T) {
	primary := downServer(t)
	alt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/dolares/blue" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"moneda":"USD","casa":"blue","compra":1290,"venta":1310}`)
	}))
	t.Cleanup(alt.Close)

	g := NewGateway(primary.URL, alt.URL, time.Second, time.Minute)
	if got := g.Current(context.Background()); got != 1310 {
		t.Errorf("Current() = %v, want alternative source's 1310", got)
	}
}

func TestCurrentDegradesToConstantWhenAllProvidersFail(t *testing.T) {
	primary := downServer(t)
	alt := downServer(t)

	g := NewGateway(primary.URL, alt.URL, time.Second, time.Minute)
	if got := g.Current(context.Background()); got != FallbackRate {
		t.Errorf("Current() = %v, want fallback constant %v", got, FallbackRate)
	}
}

func TestCurrentIsCachedWithinTTL(t *testing.T) {
	var hits atomic.Int64
	primary := bluelyticsServer(t, 1355, &hits)
	g := NewGateway(primary.URL, "http://127.0.0.1:0", time.Second, time.Minute)

	for i := 0; i < 3; i++ {
		g.Current(context.Background())
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("provider hit %d times within TTL, want 1", got)
	}
}

func TestHistoricalCachesPerDate(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v2/historical" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("day") {
		case "2025-11-01":
			fmt.Fprint(w, `{"blue":{"value_sell":1480}}`)
		case "2025-12-15":
			fmt.Fprint(w, `{"blue":{"value_sell":1510}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL, "http://127.0.0.1:0", time.Second, time.Minute)
	ctx := context.Background()

	if got := g.Historical(ctx, "2025-11-01"); got != 1480 {
		t.Errorf("Historical(2025-11-01) = %v, want 1480", got)
	}
	if got := g.Historical(ctx, "2025-12-15"); got != 1510 {
		t.Errorf("Historical(2025-12-15) = %v, want 1510", got)
	}
	g.Historical(ctx, "2025-11-01")
	g.Historical(ctx, "2025-12-15")
	if got := hits.Load(); got != 2 {
		t.Errorf("provider hit %d times for two cached dates, want 2", got)
	}
}

func TestHistoricalFallsBackToCurrentForMissingDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/latest":
			fmt.Fprint(w, `{"blue":{"value_sell":1360}}`)
		case "/v2/historical":
			// Same-day lookups routinely miss the historical dataset.
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGateway(srv.URL, "http://127.0.0.1:0", time.Second, time.Minute)
	if got := g.Historical(context.Background(), "2026-09-01"); got != 1360 {
		t.Errorf("Historical(today) = %v, want current rate 1360", got)
	}
}

func TestNonPositiveRateIsRejected(t *testing.T) {
	primary := bluelyticsServer(t, 0, nil)
	alt := downServer(t)

	g := NewGateway(primary.URL, alt.URL, time.Second, time.Minute)
	if got := g.Current(context.Background()); got != FallbackRate {
		t.Errorf("Current() = %v, want fallback when the provider reports 0", got)
	}
}
