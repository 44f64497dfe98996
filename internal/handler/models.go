package handler

import (
	"net/http"
	"sort"

	"github.com/kiro-gateway/gateway/internal/pricing"
)

// modelEntry is one row of the GET /v1/models catalog (§6 "Model catalog").
type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// HandleModels serves GET /v1/models: the fixed set of external model ids
// this gateway accepts, drawn from the pricing table's registered entries
// (the one place every supported model name is already enumerated).
func HandleModels(w http.ResponseWriter, r *http.Request) {
	entries := pricing.DefaultPriceTable().List()
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModelID < entries[j].ModelID })

	models := make([]modelEntry, 0, len(entries))
	for _, p := range entries {
		models = append(models, modelEntry{ID: p.ModelID, Object: "model", OwnedBy: "kiro-gateway"})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   models,
	})
}
