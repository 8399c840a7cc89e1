package handlers

import (
	"fmt"
	"net/http"

	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/rates"
	"github.com/username/cardstock/backend/src/services"
	"github.com/username/cardstock/backend/src/utils"
)

// ExportHandler serves the CSV backup download and the exchange-rate
// lookup.
type ExportHandler struct {
	exportService *services.ExportService
	rateGateway   *rates.Gateway
}

func NewExportHandler(service *services.ExportService, gateway *rates.Gateway) *ExportHandler {
	return &ExportHandler{exportService: service, rateGateway: gateway}
}

// HandleExportCSV streams the filtered dataset as a CSV attachment.
// Query parameters: dataType (purchases|sales), cardType, from, to.
func (h *ExportHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := services.ExportFilter{
		FromDate: q.Get("from"),
		ToDate:   q.Get("to"),
	}
	switch dt := q.Get("dataType"); dt {
	case "", "all":
	case "purchases", "sales":
		filter.DataType = dt
	default:
		utils.SendJSONError(w, fmt.Sprintf("invalid dataType %q", dt), http.StatusBadRequest)
		return
	}
	if raw := q.Get("cardType"); raw != "" {
		cardType, ok := models.ParseCardType(raw)
		if !ok {
			utils.SendJSONError(w, fmt.Sprintf("invalid card type %q", raw), http.StatusBadRequest)
			return
		}
		filter.CardType = cardType
	}
	for _, d := range []string{filter.FromDate, filter.ToDate} {
		if d != "" && !utils.IsISODate(d) {
			utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", d), http.StatusBadRequest)
			return
		}
	}

	data, err := h.exportService.ExportCSV(filter)
	if err != nil {
		logger.L.Error("CSV export failed", "error", err)
		utils.SendJSONError(w, "An internal error occurred while generating the export.", http.StatusInternalServerError)
		return
	}

	fileName := h.exportService.FileName(utils.TodayString())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.L.Error("Error writing CSV export response", "error", err)
	}
}

// HandleGetExchangeRate returns the blue-dollar sell rate, current or
// for a given past day.
func (h *ExportHandler) HandleGetExchangeRate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && !utils.IsISODate(date) {
		utils.SendJSONError(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), http.StatusBadRequest)
		return
	}

	var rate float64
	if date == "" || date == utils.TodayString() {
		rate = h.rateGateway.Current(r.Context())
	} else {
		rate = h.rateGateway.Historical(r.Context(), date)
	}
	utils.SendJSON(w, map[string]any{"rate": utils.RoundFloat(rate, 2), "date": date}, http.StatusOK)
}
