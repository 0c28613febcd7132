package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/driver"
	"opportunity_engine/pkg/core/evidence"
	"opportunity_engine/pkg/core/metrics"
	"opportunity_engine/pkg/core/schedule"
	"opportunity_engine/pkg/core/store"
	"opportunity_engine/pkg/core/template"
	"opportunity_engine/pkg/core/utils"
	"opportunity_engine/pkg/core/verify"
)

var scenarioRepo *store.ScenarioRepo
var storeReady bool

// InitHandler wires the handlers to persistence. Pass false to run the
// engine without a database (scenario endpoints then return 503).
func InitHandler(withStore bool) {
	storeReady = withStore
	if withStore {
		scenarioRepo = store.NewScenarioRepo()
	}
}

type CalculateRequest struct {
	Document  json.RawMessage    `json:"document"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

type CalculateResponse struct {
	Metrics  *metrics.CalculatedMetrics `json:"metrics"`
	Warnings []string                   `json:"warnings,omitempty"`
}

type EvidenceRequest struct {
	Document  json.RawMessage `json:"document"`
	MetricKey string          `json:"metricKey"`
	Month     int             `json:"month,omitempty"`
}

type SweepRequest struct {
	Document  json.RawMessage `json:"document"`
	DriverKey string          `json:"driverKey,omitempty"`
}

type SaveScenarioRequest struct {
	ID       string          `json:"id,omitempty"`
	Document json.RawMessage `json:"document"`
}

func writeCORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func decodeDocument(raw json.RawMessage) (document.Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("request is missing the document field")
	}
	return utils.ParseDocument(string(raw))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HandleCalculate runs the full projection for a posted document, with
// optional driver overrides applied first.
func HandleCalculate(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "POST") {
		return
	}

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := decodeDocument(req.Document)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.Overrides) > 0 {
		doc, err = driver.ApplyAll(doc, req.Overrides)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	calc, err := metrics.Calculate(doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("Calculation failed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	fmt.Printf("[MODEL] Calculated %d periods for %q (npv=%.2f)\n", len(calc.MonthlyData), doc.Title(), calc.NPV)

	check := verify.CheckSchedule(calc.MonthlyData)
	writeJSON(w, CalculateResponse{Metrics: calc, Warnings: check.Warnings})
}

// HandleEvidence returns the provenance tree for one metric.
func HandleEvidence(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "POST") {
		return
	}

	var req EvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := decodeDocument(req.Document)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	monthly, err := schedule.Build(doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("Calculation failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	trail, err := evidence.Build(doc, monthly, evidence.Request{MetricKey: req.MetricKey, Month: req.Month})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, trail)
}

// HandleSweep runs the sensitivity analysis. With a driverKey it sweeps
// that driver; without one it ranks all declared drivers by NPV spread.
func HandleSweep(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "POST") {
		return
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := decodeDocument(req.Document)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.DriverKey != "" {
		drv, ok := doc.DriverByKey(req.DriverKey)
		if !ok {
			http.Error(w, fmt.Sprintf("Driver not found: %s", req.DriverKey), http.StatusNotFound)
			return
		}
		result, err := driver.Sweep(doc, drv)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, result)
		return
	}

	summary, err := driver.Summarize(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	fmt.Printf("[MODEL] Swept %d drivers for %q\n", len(summary.Rankings), doc.Title())
	writeJSON(w, summary)
}

// HandleValidate checks a document against the schema for its business
// model without running the projection.
func HandleValidate(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "POST") {
		return
	}

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := decodeDocument(req.Document)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := template.Validate(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, result)
}

// HandleScenarios lists stored scenarios (GET) or saves one (POST).
func HandleScenarios(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "GET, POST") {
		return
	}
	if !storeReady {
		http.Error(w, "scenario storage is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx := context.Background()
	switch r.Method {
	case http.MethodGet:
		summaries, err := scenarioRepo.List(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, summaries)

	case http.MethodPost:
		var req SaveScenarioRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc, err := decodeDocument(req.Document)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calc, err := metrics.Calculate(doc)
		if err != nil {
			http.Error(w, fmt.Sprintf("Calculation failed: %v", err), http.StatusUnprocessableEntity)
			return
		}
		id, err := scenarioRepo.Save(ctx, req.ID, doc, calc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Printf("[MODEL] Saved scenario %s (%q)\n", id, doc.Title())
		writeJSON(w, map[string]string{"id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleScenario loads (GET) or deletes (DELETE) one stored scenario by
// its id query parameter.
func HandleScenario(w http.ResponseWriter, r *http.Request) {
	if writeCORS(w, r, "GET, DELETE") {
		return
	}
	if !storeReady {
		http.Error(w, "scenario storage is not configured", http.StatusServiceUnavailable)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)
		return
	}

	ctx := context.Background()
	switch r.Method {
	case http.MethodGet:
		doc, calc, err := scenarioRepo.Load(ctx, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"document": doc, "metrics": calc})

	case http.MethodDelete:
		if err := scenarioRepo.Delete(ctx, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
