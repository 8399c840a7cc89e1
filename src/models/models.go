package models

// Purchase is one purchased gift-card unit. CostARS is computed once at
// creation (PriceUSD * ExchangeRate) and never recomputed on read.
type Purchase struct {
	ID           string   `json:"id"`
	CardType     CardType `json:"cardType"`
	PriceUSD     float64  `json:"priceUSD"`
	ExchangeRate float64  `json:"exchangeRate"`
	CostARS      float64  `json:"costARS"`
	CardCode     string   `json:"cardCode,omitempty"`
	PurchaseDate string   `json:"purchaseDate"`
	CreatedAt    string   `json:"createdAt"`
}

// Sale platforms. PlatformLost is a sentinel: the unit left stock with
// zero revenue. Revenue/commission aggregates must exclude it, stock
// depletion must include it.
const (
	PlatformMercadoLibre = "mercadolibre"
	PlatformDirect       = "direct"
	PlatformLost         = "lost"
)

// Sale is one sold (or lost) unit. Quantity is always 1 in steady state;
// multi-unit orders are fanned out into N records at creation time. The
// field survives only for compatibility with older mirrored datasets.
type Sale struct {
	ID         string   `json:"id"`
	CardType   CardType `json:"cardType"`
	CardCode   string   `json:"cardCode,omitempty"`
	BuyerName  string   `json:"buyerName,omitempty"`
	SalePrice  float64  `json:"salePrice"`
	Commission float64  `json:"commission"`
	NetAmount  float64  `json:"netAmount"`
	SaleDate   string   `json:"saleDate"`
	Platform   string   `json:"platform"`
	Quantity   int      `json:"quantity"`
	CreatedAt  string   `json:"createdAt"`

	// Mercado Libre fee breakdown (per unit).
	MLCargoVenta  float64 `json:"mlCargoVenta,omitempty"`
	MLCostoFijo   float64 `json:"mlCostoFijo,omitempty"`
	MLCostoEnvio  float64 `json:"mlCostoEnvio,omitempty"`
	MLImpuestos   float64 `json:"mlImpuestos,omitempty"`
	MLDescuentos  float64 `json:"mlDescuentos,omitempty"`
	MLAnulaciones float64 `json:"mlAnulaciones,omitempty"`

	// Buyer shipping data from the ML export.
	BuyerDNI        string `json:"buyerDNI,omitempty"`
	BuyerAddress    string `json:"buyerAddress,omitempty"`
	BuyerCity       string `json:"buyerCity,omitempty"`
	BuyerState      string `json:"buyerState,omitempty"`
	BuyerPostalCode string `json:"buyerPostalCode,omitempty"`
	BuyerCountry    string `json:"buyerCountry,omitempty"`

	// ML order identifiers.
	MLOrderID       string `json:"mlOrderId,omitempty"`
	MLPublicationID string `json:"mlPublicationId,omitempty"`
	MLStatus        string `json:"mlStatus,omitempty"`
}

// Gift-code lifecycle states. Transitions only move forward.
const (
	CodeAvailable  = "available"
	CodeImageReady = "image_ready"
	CodeDelivered  = "delivered"
)

// GiftCardCode tracks one physical code through its delivery lifecycle.
// Codes and sales are tracked independently; there is no enforced link
// between a delivered code and a sale record.
type GiftCardCode struct {
	ID               string   `json:"id"`
	CardType         CardType `json:"cardType"`
	Code             string   `json:"code"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"createdAt"`
	ImageConfirmedAt string   `json:"imageConfirmedAt,omitempty"`
	DeliveredAt      string   `json:"deliveredAt,omitempty"`
	DeliveredTo      string   `json:"deliveredTo,omitempty"`
}

// AppData is the full dataset envelope, shared by local storage and the
// remote mirror protocol.
type AppData struct {
	Purchases     []Purchase         `json:"purchases"`
	Sales         []Sale             `json:"sales"`
	CardPrices    map[string]float64 `json:"cardPrices"`
	GiftCardCodes []GiftCardCode     `json:"giftCardCodes"`
	SalePricesARS map[string]float64 `json:"salePricesARS"`
	MLCommissions map[string]float64 `json:"mlCommissions"`
}

// Default purchase prices in USD per card type.
func DefaultCardPrices() map[string]float64 {
	return map[string]float64{
		"400": 5.17, "800": 10.34, "1000": 10, "steam5": 5, "steam10": 11,
	}
}

// Default Mercado Libre sale prices in ARS.
func DefaultSalePricesARS() map[string]float64 {
	return map[string]float64{
		"400": 13999, "800": 27999, "1000": 34999, "steam5": 11999, "steam10": 24999,
	}
}

// Default Mercado Libre commissions in ARS.
func DefaultMLCommissions() map[string]float64 {
	return map[string]float64{
		"400": 3284.84, "800": 6995, "1000": 8500, "steam5": 2800, "steam10": 5800,
	}
}
