package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/security/validation"
	"github.com/username/cardstock/backend/src/utils"
)

// CodeHandler serves the gift-code delivery pipeline.
type CodeHandler struct {
	ledger *ledger.Ledger
}

func NewCodeHandler(l *ledger.Ledger) *CodeHandler {
	return &CodeHandler{ledger: l}
}

func sendCodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrInvalidTransition) {
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	sendLedgerError(w, err)
}

func (h *CodeHandler) HandleGetCodes(w http.ResponseWriter, r *http.Request) {
	codes := h.ledger.Codes()
	if codes == nil {
		codes = []models.GiftCardCode{}
	}
	utils.SendJSON(w, codes, http.StatusOK)
}

type codeRequest struct {
	CardType    models.CardType `json:"cardType"`
	Code        string          `json:"code"`
	DeliveredTo string          `json:"deliveredTo"`
}

func (h *CodeHandler) HandleAddCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	// Codes are pasted from chat or email and pick up stray control
	// characters on the way.
	created, err := h.ledger.AddCode(req.CardType, strings.TrimSpace(validation.StripUnprintable(req.Code)))
	if err != nil {
		sendCodeError(w, err)
		return
	}
	logger.L.Info("Gift code registered", "cardType", req.CardType)
	utils.SendJSON(w, created, http.StatusCreated)
}

func (h *CodeHandler) HandleMarkImageReady(w http.ResponseWriter, r *http.Request) {
	updated, err := h.ledger.MarkCodeImageReady(r.PathValue("id"))
	if err != nil {
		sendCodeError(w, err)
		return
	}
	utils.SendJSON(w, updated, http.StatusOK)
}

func (h *CodeHandler) HandleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	updated, err := h.ledger.MarkCodeDelivered(r.PathValue("id"), req.DeliveredTo)
	if err != nil {
		sendCodeError(w, err)
		return
	}
	logger.L.Info("Gift code delivered", "codeID", updated.ID)
	utils.SendJSON(w, updated, http.StatusOK)
}

func (h *CodeHandler) HandleDeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCode(r.PathValue("id")); err != nil {
		sendCodeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
