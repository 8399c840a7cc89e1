// Package rates fetches the USD/ARS "blue" exchange rate. Bluelytics is
// the primary source, DolarAPI the alternative, and a hardcoded constant
// the last resort; the dashboard must keep working when both APIs are
// down.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cardstock/backend/src/logger"
)

// FallbackRate is used when every provider fails.
const FallbackRate = 1200

type Gateway struct {
	primaryURL  string
	fallbackURL string
	client      *http.Client
	// Historical rates never change once published; current-rate lookups
	// get a short TTL.
	rateCache  *cache.Cache
	currentTTL time.Duration
}

func NewGateway(primaryURL, fallbackURL string, clientTimeout, currentTTL time.Duration) *Gateway {
	return &Gateway{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		client:      &http.Client{Timeout: clientTimeout},
		rateCache:   cache.New(cache.NoExpiration, 12*time.Hour),
		currentTTL:  currentTTL,
	}
}

type bluelyticsResponse struct {
	Blue struct {
		ValueSell float64 `json:"value_sell"`
	} `json:"blue"`
}

type dolarAPIResponse struct {
	Venta float64 `json:"venta"`
}

// Current returns the blue-dollar sell rate. Never fails: provider
// errors degrade to the fallback constant.
func (g *Gateway) Current(ctx context.Context) float64 {
	const key = "current"
	if v, found := g.rateCache.Get(key); found {
		return v.(float64)
	}

	if rate, err := g.fetchBluelytics(ctx, g.primaryURL+"/v2/latest"); err == nil {
		logger.L.Debug("Exchange rate fetched", "source", "bluelytics", "rate", rate)
		g.rateCache.Set(key, rate, g.currentTTL)
		return rate
	} else {
		logger.L.Warn("Primary exchange-rate API failed", "error", err)
	}

	if rate, err := g.fetchDolarAPI(ctx); err == nil {
		logger.L.Debug("Exchange rate fetched", "source", "dolarapi", "rate", rate)
		g.rateCache.Set(key, rate, g.currentTTL)
		return rate
	} else {
		logger.L.Warn("Alternative exchange-rate API failed", "error", err)
	}

	logger.L.Warn("All exchange-rate providers failed, using fallback", "rate", FallbackRate)
	return FallbackRate
}

// Historical returns the blue-dollar sell rate for a YYYY-MM-DD day,
// cached per date. A failed historical lookup falls back to the current
// rate (recent dates are often missing from the historical API).
func (g *Gateway) Historical(ctx context.Context, date string) float64 {
	if v, found := g.rateCache.Get(date); found {
		return v.(float64)
	}

	histURL := fmt.Sprintf("%s/v2/historical?day=%s", g.primaryURL, url.QueryEscape(date))
	if rate, err := g.fetchBluelytics(ctx, histURL); err == nil {
		logger.L.Debug("Historical exchange rate fetched", "date", date, "rate", rate)
		g.rateCache.Set(date, rate, cache.NoExpiration)
		return rate
	} else {
		logger.L.Warn("Historical exchange-rate lookup failed, using current", "date", date, "error", err)
	}

	rate := g.Current(ctx)
	g.rateCache.Set(date, rate, cache.NoExpiration)
	return rate
}

func (g *Gateway) fetchBluelytics(ctx context.Context, rawURL string) (float64, error) {
	var body bluelyticsResponse
	if err := g.getJSON(ctx, rawURL, &body); err != nil {
		return 0, err
	}
	if body.Blue.ValueSell <= 0 {
		return 0, fmt.Errorf("response missing blue.value_sell")
	}
	return body.Blue.ValueSell, nil
}

func (g *Gateway) fetchDolarAPI(ctx context.Context) (float64, error) {
	var body dolarAPIResponse
	if err := g.getJSON(ctx, g.fallbackURL+"/v1/dolares/blue", &body); err != nil {
		return 0, err
	}
	if body.Venta <= 0 {
		return 0, fmt.Errorf("response missing venta")
	}
	return body.Venta, nil
}

func (g *Gateway) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}
