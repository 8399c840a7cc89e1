package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/utils"
)

// LedgerHandler serves the purchase and sale collections, the price
// maps and the aggregate summary.
type LedgerHandler struct {
	ledger *ledger.Ledger
}

func NewLedgerHandler(l *ledger.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// sendLedgerError maps the ledger's sentinel errors to status codes.
func sendLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientStock):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidCardType), errors.Is(err, ledger.ErrInvalidInput):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.L.Error("Ledger command failed", "error", err)
		utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.L.Warn("Failed to decode request body", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Invalid JSON request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *LedgerHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, h.ledger.Summary(), http.StatusOK)
}

func (h *LedgerHandler) HandleGetPurchases(w http.ResponseWriter, r *http.Request) {
	purchases := h.ledger.Purchases()
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	utils.SendJSON(w, purchases, http.StatusOK)
}

type purchaseRequest struct {
	CardType     models.CardType `json:"cardType"`
	PriceUSD     float64         `json:"priceUSD"`
	ExchangeRate float64         `json:"exchangeRate"`
	CardCode     string          `json:"cardCode"`
	PurchaseDate string          `json:"purchaseDate"`
	Quantity     int             `json:"quantity"`
}

func (h *LedgerHandler) HandleAddPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	created, err := h.ledger.AddPurchase(ledger.PurchaseInput{
		CardType:     req.CardType,
		PriceUSD:     req.PriceUSD,
		ExchangeRate: req.ExchangeRate,
		CardCode:     req.CardCode,
		PurchaseDate: req.PurchaseDate,
		Quantity:     req.Quantity,
	})
	if err != nil {
		sendLedgerError(w, err)
		return
	}
	logger.L.Info("Purchase recorded", "cardType", req.CardType, "quantity", len(created))
	utils.SendJSON(w, created, http.StatusCreated)
}

func (h *LedgerHandler) HandleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	updated, err := h.ledger.UpdatePurchase(r.PathValue("id"), req.PurchaseDate, req.PriceUSD, req.ExchangeRate)
	if err != nil {
		sendLedgerError(w, err)
		return
	}
	utils.SendJSON(w, updated, http.StatusOK)
}

func (h *LedgerHandler) HandleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeletePurchase(r.PathValue("id")); err != nil {
		sendLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) HandleDeleteAllPurchases(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteAllPurchases(); err != nil {
		sendLedgerError(w, err)
		return
	}
	logger.L.Info("All purchases deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) HandleGetSales(w http.ResponseWriter, r *http.Request) {
	sales := h.ledger.Sales()
	if sales == nil {
		sales = []models.Sale{}
	}
	utils.SendJSON(w, sales, http.StatusOK)
}

type saleRequest struct {
	CardType   models.CardType `json:"cardType"`
	CardCode   string          `json:"cardCode"`
	BuyerName  string          `json:"buyerName"`
	SalePrice  float64         `json:"salePrice"`
	Commission float64         `json:"commission"`
	SaleDate   string          `json:"saleDate"`
	Platform   string          `json:"platform"`
	Quantity   int             `json:"quantity"`
}

func (h *LedgerHandler) HandleAddSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	created, err := h.ledger.AddSale(ledger.SaleInput{
		CardType:   req.CardType,
		CardCode:   req.CardCode,
		BuyerName:  req.BuyerName,
		SalePrice:  req.SalePrice,
		Commission: req.Commission,
		SaleDate:   req.SaleDate,
		Platform:   req.Platform,
		Quantity:   req.Quantity,
	})
	if err != nil {
		sendLedgerError(w, err)
		return
	}
	logger.L.Info("Sale recorded", "cardType", req.CardType, "platform", req.Platform, "quantity", len(created))
	utils.SendJSON(w, created, http.StatusCreated)
}

func (h *LedgerHandler) HandleUpdateSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	updated, err := h.ledger.UpdateSale(r.PathValue("id"), req.SalePrice, req.Commission, req.SaleDate)
	if err != nil {
		sendLedgerError(w, err)
		return
	}
	utils.SendJSON(w, updated, http.StatusOK)
}

func (h *LedgerHandler) HandleDeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteSale(r.PathValue("id")); err != nil {
		sendLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) HandleDeleteAllSales(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteAllSales(); err != nil {
		sendLedgerError(w, err)
		return
	}
	logger.L.Info("All sales deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleDailySalesCount reports how many real sales are dated on the
// given day (today when the date parameter is absent).
func (h *LedgerHandler) HandleDailySalesCount(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = utils.TodayString()
	}
	if !utils.IsISODate(date) {
		utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]any{"date": date, "count": h.ledger.DailySalesCount(date)}, http.StatusOK)
}

// HandleGetStock reports available stock, for one card type or all.
func (h *LedgerHandler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("cardType"); raw != "" {
		cardType, ok := models.ParseCardType(raw)
		if !ok {
			utils.SendJSONError(w, fmt.Sprintf("invalid card type %q", raw), http.StatusBadRequest)
			return
		}
		utils.SendJSON(w, map[string]any{
			"cardType": cardType,
			"stock":    h.ledger.AvailableStockFor(cardType),
		}, http.StatusOK)
		return
	}
	utils.SendJSON(w, h.ledger.Summary().Stock, http.StatusOK)
}

type pricesPayload struct {
	CardPrices    map[string]float64 `json:"cardPrices,omitempty"`
	SalePricesARS map[string]float64 `json:"salePricesARS,omitempty"`
	MLCommissions map[string]float64 `json:"mlCommissions,omitempty"`
}

func (h *LedgerHandler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	cardPrices, salePricesARS, mlCommissions := h.ledger.Prices()
	utils.SendJSON(w, pricesPayload{
		CardPrices:    cardPrices,
		SalePricesARS: salePricesARS,
		MLCommissions: mlCommissions,
	}, http.StatusOK)
}

func (h *LedgerHandler) HandleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesPayload
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.ledger.SetPrices(req.CardPrices, req.SalePricesARS, req.MLCommissions); err != nil {
		sendLedgerError(w, err)
		return
	}
	logger.L.Info("Prices updated",
		"cardPrices", len(req.CardPrices),
		"salePricesARS", len(req.SalePricesARS),
		"mlCommissions", len(req.MLCommissions))
	h.HandleGetPrices(w, r)
}
