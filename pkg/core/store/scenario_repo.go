package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/metrics"
)

// ScenarioRepo handles the storage of assumption documents together with
// the metrics computed from them, so a saved scenario can be re-opened
// without recomputation.
type ScenarioRepo struct{}

// NewScenarioRepo creates a new repository instance.
func NewScenarioRepo() *ScenarioRepo {
	return &ScenarioRepo{}
}

// ScenarioSummary is the listing row: enough to render an index without
// pulling full document blobs.
type ScenarioSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	BusinessModel string    `json:"businessModel"`
	NPV           float64   `json:"npv"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Save persists a scenario and returns its id. A blank id allocates a new
// one; a known id upserts in place.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS scenarios (
//
//	id UUID PRIMARY KEY,
//	title TEXT,
//	business_model TEXT,
//	scenario_json JSONB,
//	updated_at TIMESTAMPTZ
//
// );
func (r *ScenarioRepo) Save(ctx context.Context, id string, doc document.Document, calc *metrics.CalculatedMetrics) (string, error) {
	pool := GetPool()
	if pool == nil {
		return "", fmt.Errorf("database pool not initialized")
	}
	if id == "" {
		id = uuid.New().String()
	}

	data := struct {
		Document document.Document          `json:"document"`
		Metrics  *metrics.CalculatedMetrics `json:"metrics"`
	}{
		Document: doc,
		Metrics:  calc,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal scenario: %w", err)
	}

	query := `
		INSERT INTO scenarios (id, title, business_model, scenario_json, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			business_model = EXCLUDED.business_model,
			scenario_json = EXCLUDED.scenario_json,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query, id, doc.Title(), doc.BusinessModel(), jsonData, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to save scenario: %w", err)
	}

	return id, nil
}

// Load retrieves a scenario's document and cached metrics by id.
func (r *ScenarioRepo) Load(ctx context.Context, id string) (document.Document, *metrics.CalculatedMetrics, error) {
	pool := GetPool()
	if pool == nil {
		return nil, nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT scenario_json FROM scenarios WHERE id = $1`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, id).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, fmt.Errorf("no scenario found for id %s", id)
		}
		return nil, nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	var data struct {
		Document document.Document          `json:"document"`
		Metrics  *metrics.CalculatedMetrics `json:"metrics"`
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal scenario data: %w", err)
	}

	return data.Document, data.Metrics, nil
}

// List returns summaries of every stored scenario, newest first.
func (r *ScenarioRepo) List(ctx context.Context) ([]ScenarioSummary, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, title, business_model,
		       COALESCE((scenario_json->'metrics'->>'npv')::float8, 0),
		       updated_at
		FROM scenarios
		ORDER BY updated_at DESC
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var summaries []ScenarioSummary
	for rows.Next() {
		var s ScenarioSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.BusinessModel, &s.NPV, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a stored scenario.
func (r *ScenarioRepo) Delete(ctx context.Context, id string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	_, err := pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}
