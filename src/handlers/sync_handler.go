package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/models"
	"github.com/username/cardstock/backend/src/sync"
	"github.com/username/cardstock/backend/src/utils"
)

// SyncHandler serves the remote-mirror endpoints: connectivity test,
// pull with reconciliation, explicit push and legacy migration.
type SyncHandler struct {
	ledger *ledger.Ledger
	client *sync.Client
	pusher *sync.Pusher
}

func NewSyncHandler(l *ledger.Ledger, client *sync.Client, pusher *sync.Pusher) *SyncHandler {
	return &SyncHandler{ledger: l, client: client, pusher: pusher}
}

func sendSyncError(w http.ResponseWriter, err error) {
	if errors.Is(err, sync.ErrNotConfigured) {
		utils.SendJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	logger.L.Warn("Remote sync operation failed", "error", err)
	utils.SendJSONError(w, fmt.Sprintf("remote sync failed: %v", err), http.StatusBadGateway)
}

// HandleTestConnection probes the remote endpoint.
func (h *SyncHandler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Probe(r.Context()); err != nil {
		sendSyncError(w, err)
		return
	}
	utils.SendJSON(w, map[string]any{"connected": true}, http.StatusOK)
}

func parsePolicy(raw string) (sync.ReconcilePolicy, error) {
	switch raw {
	case "", string(sync.PolicyPreferLarger):
		return sync.PolicyPreferLarger, nil
	case string(sync.PolicyMergeByID):
		return sync.PolicyMergeByID, nil
	default:
		return "", fmt.Errorf("unknown reconcile mode %q", raw)
	}
}

// HandlePull loads the remote dataset, reconciles it against the local
// one and replaces the ledger with the result.
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	h.pullAndReconcile(w, r, h.client.Load)
}

// HandleMigrate reads the remote's legacy single-cell layout and folds
// it in like a pull. Only ever triggered explicitly.
func (h *SyncHandler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	h.pullAndReconcile(w, r, h.client.Migrate)
}

func (h *SyncHandler) pullAndReconcile(w http.ResponseWriter, r *http.Request, load func(context.Context) (*models.AppData, error)) {
	policy, err := parsePolicy(r.URL.Query().Get("mode"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	remote, err := load(r.Context())
	if err != nil {
		sendSyncError(w, err)
		return
	}

	merged := sync.Reconcile(h.ledger.Snapshot(), *remote, policy)
	if err := h.ledger.ReplaceAll(merged); err != nil {
		logger.L.Error("Failed to persist reconciled dataset", "error", err)
		utils.SendJSONError(w, "An internal error occurred while saving the merged dataset.", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Remote dataset reconciled",
		"policy", policy,
		"purchases", len(merged.Purchases),
		"sales", len(merged.Sales),
		"codes", len(merged.GiftCardCodes))
	utils.SendJSON(w, h.ledger.Summary(), http.StatusOK)
}

// HandlePush pushes the current snapshot immediately, bypassing the
// debounce.
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	if err := h.pusher.Flush(r.Context(), h.ledger.Snapshot()); err != nil {
		sendSyncError(w, err)
		return
	}
	utils.SendJSON(w, map[string]any{"pushed": true}, http.StatusOK)
}

// HandleStatus reports the pusher state and whether sync is configured.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, at := h.pusher.Status()
	resp := map[string]any{
		"configured": h.client.Configured(),
		"status":     status,
	}
	if !at.IsZero() {
		resp["lastSyncAt"] = at.UTC()
	}
	utils.SendJSON(w, resp, http.StatusOK)
}
