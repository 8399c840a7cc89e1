package sync

import (
	"github.com/username/cardstock/backend/src/models"
)

// Two reconciliation policies for merging local and remote copies of
// the dataset on load. Neither may lose data silently, which rules out
// plain last-write-wins.
type ReconcilePolicy string

const (
	// PolicyPreferLarger adopts the remote copy of each collection
	// unless the local one has strictly more records ("more data wins").
	PolicyPreferLarger ReconcilePolicy = "prefer-larger"
	// PolicyMergeByID unions both sides: every remote record plus every
	// local record whose ID the remote does not have.
	PolicyMergeByID ReconcilePolicy = "merge"
)

// Reconcile applies the chosen policy. Price maps always come from the
// remote when it has any (the caller overlays them onto defaults).
func Reconcile(local, remote models.AppData, policy ReconcilePolicy) models.AppData {
	if policy == PolicyMergeByID {
		return mergeByID(local, remote)
	}
	return preferLarger(local, remote)
}

func preferLarger(local, remote models.AppData) models.AppData {
	out := remote
	if len(local.Sales) > len(remote.Sales) {
		out.Sales = local.Sales
	}
	if len(local.Purchases) > len(remote.Purchases) {
		out.Purchases = local.Purchases
	}
	if len(local.GiftCardCodes) > len(remote.GiftCardCodes) {
		out.GiftCardCodes = local.GiftCardCodes
	}
	out = fillPricesFromLocal(out, local)
	return out
}

func mergeByID(local, remote models.AppData) models.AppData {
	out := remote

	seenPurchases := make(map[string]bool, len(remote.Purchases))
	for _, p := range remote.Purchases {
		seenPurchases[p.ID] = true
	}
	for _, p := range local.Purchases {
		if !seenPurchases[p.ID] {
			out.Purchases = append(out.Purchases, p)
		}
	}

	seenSales := make(map[string]bool, len(remote.Sales))
	for _, s := range remote.Sales {
		seenSales[s.ID] = true
	}
	for _, s := range local.Sales {
		if !seenSales[s.ID] {
			out.Sales = append(out.Sales, s)
		}
	}

	seenCodes := make(map[string]bool, len(remote.GiftCardCodes))
	for _, c := range remote.GiftCardCodes {
		seenCodes[c.ID] = true
	}
	for _, c := range local.GiftCardCodes {
		if !seenCodes[c.ID] {
			out.GiftCardCodes = append(out.GiftCardCodes, c)
		}
	}

	out = fillPricesFromLocal(out, local)
	return out
}

func fillPricesFromLocal(out, local models.AppData) models.AppData {
	if len(out.CardPrices) == 0 {
		out.CardPrices = local.CardPrices
	}
	if len(out.SalePricesARS) == 0 {
		out.SalePricesARS = local.SalePricesARS
	}
	if len(out.MLCommissions) == 0 {
		out.MLCommissions = local.MLCommissions
	}
	return out
}
