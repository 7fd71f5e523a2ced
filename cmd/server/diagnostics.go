package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/quizbank/backend/internal/adaptive"
	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/monitor"
)

type diagnosticsResponse struct {
	Report      models.PerformanceReport     `json:"report"`
	Strategies  []models.StrategyPerformance `json:"strategies"`
	Adjustments []models.StrategyAdjustment  `json:"adjustments,omitempty"`
	Budget      models.BudgetStatus          `json:"budget"`
}

// diagnosticsHandler exposes the parsing performance report, the adaptive
// layer's current view of each strategy, and budget usage in one payload.
func diagnosticsHandler(metrics *monitor.Monitor, gate *adaptive.Manager, cost *adaptive.CostOptimizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := 24
		if v := r.URL.Query().Get("period_hours"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				period = n
			}
		}

		resp := diagnosticsResponse{
			Report:      metrics.GenerateReport(period),
			Strategies:  gate.Snapshots(),
			Adjustments: gate.Adjustments(),
			Budget:      cost.Status(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
