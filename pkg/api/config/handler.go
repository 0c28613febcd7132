package config

import (
	"encoding/json"
	"net/http"

	"opportunity_engine/pkg/core/document"
)

type Response struct {
	BusinessModels []string `json:"business_models"`
	StorageEnabled bool     `json:"storage_enabled"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	StorageEnabled bool
}

// NewHandler creates a new config handler
func NewHandler(storageEnabled bool) *Handler {
	return &Handler{
		StorageEnabled: storageEnabled,
	}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	resp := Response{
		BusinessModels: []string{
			document.ModelRecurring,
			document.ModelUnitSales,
			document.ModelCostSavings,
		},
		StorageEnabled: h.StorageEnabled,
	}
	json.NewEncoder(w).Encode(resp)
}
